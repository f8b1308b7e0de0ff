// Package sources fetches and decodes the seven upstream business
// collections. The upstream API is duck-typed: amounts arrive as numbers
// or comma-grouped strings, staff references as objects, strings or ids,
// and per-entity breakdowns as JSON objects that are sometimes empty
// arrays. Every field here decodes tolerantly so that one malformed
// record never fails a batch.
package sources

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"mizan/internal/core"
)

type (
	// FlexAmount decodes a monetary value that may be a JSON number, a
	// string with thousands separators, or null. Unparseable values decode
	// to zero; the normalizer later drops non-positive amounts.
	FlexAmount struct {
		decimal.Decimal
	}

	// FlexInt decodes an integer that may arrive as a number or a numeric
	// string. Anything else decodes to zero.
	FlexInt int

	// FlexString decodes a value that may arrive as a string or a number
	// (floors and receiver ids do both).
	FlexString string

	// StaffRef decodes the salary "staff" field: an object with id/name, a
	// bare name string, or a numeric id.
	StaffRef struct {
		ID   string
		Name string
	}

	// BreakdownEntry is one per-entity line of a customers_list map.
	BreakdownEntry struct {
		Name        string     `json:"name"`
		Salary      FlexAmount `json:"salary"`
		Taken       FlexAmount `json:"taken"`
		Remainder   FlexAmount `json:"remainder"`
		Description string     `json:"description"`
	}

	// Breakdown is a customers_list map keyed by entity id. A present but
	// empty container (object or the empty-array form Django emits for an
	// empty JSONField) decodes to an empty non-nil map, which still counts
	// as "breakdown present" and suppresses the aggregate fallback.
	// Scalars and null decode to nil; non-object entries are skipped.
	Breakdown map[string]BreakdownEntry

	// ShopRefs decodes an agreement's shop reference: a scalar id or a
	// list of ids.
	ShopRefs []string

	// RecordDates carries every timestamp shape a record may use: the five
	// explicit timestamp fields plus the legacy Jalali year/month pair
	// ("time" is an alias some collections use for the month).
	RecordDates struct {
		PaymentDate     string  `json:"payment_date"`
		TransactionDate string  `json:"transaction_date"`
		Date            string  `json:"date"`
		CreatedAt       string  `json:"created_at"`
		UpdatedAt       string  `json:"updated_at"`
		Year            FlexInt `json:"year"`
		Month           FlexInt `json:"month"`
		Time            FlexInt `json:"time"`
	}
)

// Source record types, one per collection.
type (
	ExpenditureRecord struct {
		RecordDates
		ID          FlexInt    `json:"id"`
		Amount      FlexAmount `json:"amount"`
		Category    string     `json:"category"`
		Floor       FlexString `json:"floor"`
		Description string     `json:"description"`
		Receiver    FlexString `json:"receiver"`
	}

	IncomeRecord struct {
		RecordDates
		ID          FlexInt    `json:"id"`
		Amount      FlexAmount `json:"amount"`
		Source      string     `json:"source"`
		Description string     `json:"description"`
		Receiver    FlexString `json:"receiver"`
	}

	RentRecord struct {
		RecordDates
		ID             FlexInt    `json:"id"`
		Floor          FlexString `json:"floor"`
		Customers      Breakdown  `json:"customers_list"`
		TotalTaken     FlexAmount `json:"total_taken"`
		TotalRemainder FlexAmount `json:"total_remainder"`
	}

	ServiceRecord struct {
		RecordDates
		ID             FlexInt    `json:"id"`
		Floor          FlexString `json:"floor"`
		Customers      Breakdown  `json:"customers_list"`
		TotalTaken     FlexAmount `json:"total_taken"`
		TotalRemainder FlexAmount `json:"total_remainder"`
	}

	SalaryRecord struct {
		RecordDates
		ID             FlexInt    `json:"id"`
		Staff          StaffRef   `json:"staff"`
		StaffID        FlexString `json:"staff_id"`
		Breakdown      Breakdown  `json:"customers_list"`
		TotalAmount    FlexAmount `json:"total_amount"`
		TotalTaken     FlexAmount `json:"total_taken"`
		TotalRemainder FlexAmount `json:"total_remainder"`
	}

	CustomerRecord struct {
		ID       FlexInt `json:"id"`
		FullName string  `json:"full_name"`
		Name     string  `json:"name"`
	}

	AgreementRecord struct {
		ID     FlexInt  `json:"id"`
		Status string   `json:"status"`
		Shop   ShopRefs `json:"shop"`
	}
)

// Batch is the result of fetching all seven collections for one run.
// Errors holds one human-readable entry per failed source; a failed
// source leaves its slice empty and never aborts the others.
type Batch struct {
	Expenditures []ExpenditureRecord
	Incomes      []IncomeRecord
	Rents        []RentRecord
	Services     []ServiceRecord
	Salaries     []SalaryRecord
	Customers    []CustomerRecord
	Agreements   []AgreementRecord
	Errors       []string
}

func isNull(b []byte) bool {
	return len(b) == 0 || bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

func (a *FlexAmount) UnmarshalJSON(b []byte) error {
	a.Decimal = decimal.Zero
	if isNull(b) {
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	} else {
		s = string(b)
	}
	if d, err := core.ParseAmount(s); err == nil {
		a.Decimal = d
	}
	return nil
}

func (i *FlexInt) UnmarshalJSON(b []byte) error {
	*i = 0
	if isNull(b) {
		return nil
	}
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		*i = FlexInt(n)
	}
	return nil
}

func (i FlexInt) Int() int { return int(i) }

func (s *FlexString) UnmarshalJSON(b []byte) error {
	*s = ""
	if isNull(b) {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err == nil {
			*s = FlexString(v)
		}
		return nil
	}
	*s = FlexString(bytes.TrimSpace(b))
	return nil
}

func (s FlexString) String() string { return string(s) }

func (r *StaffRef) UnmarshalJSON(b []byte) error {
	*r = StaffRef{}
	if isNull(b) {
		return nil
	}
	switch b[0] {
	case '{':
		var obj struct {
			ID   FlexInt `json:"id"`
			Name string  `json:"name"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return nil
		}
		if obj.ID != 0 {
			r.ID = strconv.Itoa(obj.ID.Int())
		}
		r.Name = obj.Name
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			// A bare string is both the display name and, per upstream
			// behaviour, the fallback id.
			r.Name = s
			r.ID = s
		}
	default:
		r.ID = string(bytes.TrimSpace(b))
	}
	return nil
}

func (m *Breakdown) UnmarshalJSON(b []byte) error {
	*m = nil
	if isNull(b) {
		return nil
	}
	if b[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(b, &list); err == nil && len(list) == 0 {
			*m = Breakdown{}
		}
		return nil
	}
	if b[0] != '{' {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	out := make(Breakdown, len(raw))
	for id, entry := range raw {
		if isNull(entry) || entry[0] != '{' {
			continue
		}
		var e BreakdownEntry
		if err := json.Unmarshal(entry, &e); err != nil {
			continue
		}
		out[id] = e
	}
	*m = out
	return nil
}

// SortedIDs returns the entity ids in a stable order so that emitted
// transactions are deterministic across runs.
func (m Breakdown) SortedIDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *ShopRefs) UnmarshalJSON(b []byte) error {
	*s = nil
	if isNull(b) {
		return nil
	}
	if b[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(b, &list); err != nil {
			return nil
		}
		for _, item := range list {
			if id := scalarString(item); id != "" {
				*s = append(*s, id)
			}
		}
		return nil
	}
	if id := scalarString(b); id != "" {
		*s = ShopRefs{id}
	}
	return nil
}

func scalarString(b []byte) string {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return ""
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return ""
		}
		return v
	}
	return string(b)
}
