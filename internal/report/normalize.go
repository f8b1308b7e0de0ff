// Package report implements the ledger aggregation pipeline: one
// normalizer per source collection, the monthly-bucket aggregator, the
// outstanding-balance calculator, the run pipeline and the pure
// filter/pagination view.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mizan/internal/core"
	"mizan/internal/sources"
)

// Normalizer converts source records into canonical transactions for one
// window. Each per-source method independently drops records with an
// unresolvable date, an out-of-window date or a non-positive amount;
// no single bad record ever aborts a batch.
type Normalizer struct {
	window    core.Window
	customers map[string]string
	seq       int
}

func NewNormalizer(window core.Window, customers []sources.CustomerRecord) *Normalizer {
	return &Normalizer{
		window:    window,
		customers: customerIndex(customers),
	}
}

// customerIndex maps customer ids to display names.
func customerIndex(customers []sources.CustomerRecord) map[string]string {
	idx := make(map[string]string, len(customers))
	for _, c := range customers {
		if c.ID.Int() == 0 {
			continue
		}
		id := fmt.Sprintf("%d", c.ID.Int())
		switch {
		case c.FullName != "":
			idx[id] = c.FullName
		case c.Name != "":
			idx[id] = c.Name
		default:
			idx[id] = "مشتری " + id
		}
	}
	return idx
}

func (n *Normalizer) customerName(id string) string {
	if name, ok := n.customers[id]; ok {
		return name
	}
	return "مشتری " + id
}

// add finalizes and appends a transaction, assigning its unique key.
// Non-positive amounts are discarded here, so every emitted transaction
// satisfies amount > 0.
func (n *Normalizer) add(out []core.Transaction, t core.Transaction) []core.Transaction {
	if !t.Amount.IsPositive() {
		return out
	}
	if t.Category == "" {
		t.Category = "بدون کتگوری"
	}
	if t.Description == "" {
		t.Description = "-"
	}
	if t.RelatedName == "" {
		t.RelatedName = "-"
	}
	n.seq++
	t.Key = fmt.Sprintf("%s-%s-%s-%s-%s-%d",
		t.Type, t.Source, categoryKey(t.Category), t.Date.Format(time.RFC3339), t.Amount, n.seq)
	return append(out, t)
}

// categoryKey normalizes a category for use inside a transaction key.
func categoryKey(category string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(category) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// inWindow resolves a record's date and checks it against the run window.
func (n *Normalizer) inWindow(d sources.RecordDates) (time.Time, bool) {
	t, ok := d.Resolve()
	if !ok || !n.window.Contains(t) {
		return time.Time{}, false
	}
	return t, true
}

// Expenditures emits one expense transaction per record. The category
// comes from the record, else is derived from the floor, else is the
// generic label.
func (n *Normalizer) Expenditures(records []sources.ExpenditureRecord) []core.Transaction {
	var out []core.Transaction
	for _, r := range records {
		date, ok := n.inWindow(r.RecordDates)
		if !ok {
			continue
		}
		category := r.Category
		if category == "" {
			if r.Floor != "" {
				category = "مصارف منزل " + r.Floor.String()
			} else {
				category = "مصارف عمومی"
			}
		}
		description := r.Description
		if description == "" {
			description = "مصارف: " + category
		}
		out = n.add(out, core.Transaction{
			Date:        date,
			Description: description,
			Category:    category,
			Amount:      r.Amount.Decimal,
			Type:        core.Expense,
			Source:      core.SourceExpenditures,
			RelatedName: receiverName(r.Receiver),
		})
	}
	return out
}

// Incomes emits one income transaction per miscellaneous-income record,
// categorized by its source field.
func (n *Normalizer) Incomes(records []sources.IncomeRecord) []core.Transaction {
	var out []core.Transaction
	for _, r := range records {
		date, ok := n.inWindow(r.RecordDates)
		if !ok {
			continue
		}
		category := r.Source
		if category == "" {
			category = "درآمد متفرقه"
		}
		description := r.Description
		if description == "" {
			if r.Source != "" {
				description = r.Source
			} else {
				description = fmt.Sprintf("درآمد متفرقه #%d", r.ID.Int())
			}
		}
		out = n.add(out, core.Transaction{
			Date:        date,
			Description: description,
			Category:    category,
			Amount:      r.Amount.Decimal,
			Type:        core.Income,
			Source:      core.SourceExpenditureIncome,
			RelatedName: receiverName(r.Receiver),
		})
	}
	return out
}

func receiverName(receiver sources.FlexString) string {
	if receiver == "" {
		return "-"
	}
	return "ID: " + receiver.String()
}

// ledgerRecord is the shared shape of rent and service records; the two
// collections follow one extraction rule parameterized by labels.
type ledgerRecord struct {
	id         int
	floor      string
	breakdown  sources.Breakdown
	totalTaken decimal.Decimal
	dates      sources.RecordDates
}

// Rents emits income transactions for rent records: one per breakdown
// entry with a positive taken amount when a breakdown is present, else a
// single transaction for the record's aggregate total. Never both.
func (n *Normalizer) Rents(records []sources.RentRecord) []core.Transaction {
	var out []core.Transaction
	for _, r := range records {
		out = n.appendLedgerRecord(out, ledgerRecord{
			id:         r.ID.Int(),
			floor:      r.Floor.String(),
			breakdown:  r.Customers,
			totalTaken: r.TotalTaken.Decimal,
			dates:      r.RecordDates,
		}, core.SourceRent, "کرایه")
	}
	return out
}

// Services applies the rent rule with the service-fee labels.
func (n *Normalizer) Services(records []sources.ServiceRecord) []core.Transaction {
	var out []core.Transaction
	for _, r := range records {
		out = n.appendLedgerRecord(out, ledgerRecord{
			id:         r.ID.Int(),
			floor:      r.Floor.String(),
			breakdown:  r.Customers,
			totalTaken: r.TotalTaken.Decimal,
			dates:      r.RecordDates,
		}, core.SourceServices, "فیس خدمات")
	}
	return out
}

func (n *Normalizer) appendLedgerRecord(out []core.Transaction, r ledgerRecord, src core.Source, category string) []core.Transaction {
	date, ok := n.inWindow(r.dates)
	if !ok {
		return out
	}
	floor := r.floor
	if floor == "" {
		floor = "N/A"
	}

	if r.breakdown != nil {
		for _, id := range r.breakdown.SortedIDs() {
			entry := r.breakdown[id]
			if !entry.Taken.IsPositive() {
				// Explicit exclusion: zero/absent taken means nothing was
				// collected from this entity this period.
				continue
			}
			// The related-entity column only resolves customers the index
			// knows about; the description gets a softer placeholder.
			related, known := n.customers[id]
			if !known {
				related = "ID: " + id
			}
			out = n.add(out, core.Transaction{
				Date:        date,
				Description: fmt.Sprintf("%s - منزل: %s - %s", category, floor, n.customerName(id)),
				Category:    category,
				Amount:      entry.Taken.Decimal,
				Type:        core.Income,
				Source:      src,
				RelatedName: related,
			})
		}
		return out
	}

	if r.totalTaken.IsPositive() {
		out = n.add(out, core.Transaction{
			Date:        date,
			Description: fmt.Sprintf("%s کلی - منزل: %s - ریکارد ID %d", category, floor, r.id),
			Category:    category,
			Amount:      r.totalTaken,
			Type:        core.Income,
			Source:      src,
			RelatedName: fmt.Sprintf("ID: ریکارد %d", r.id),
		})
	}
	return out
}

// Salaries emits one expense transaction per salary record for the
// already-disbursed amount (total_taken).
func (n *Normalizer) Salaries(records []sources.SalaryRecord) []core.Transaction {
	var out []core.Transaction
	for _, r := range records {
		date, ok := n.inWindow(r.RecordDates)
		if !ok {
			continue
		}
		if !r.TotalTaken.IsPositive() {
			continue
		}

		staffID := r.Staff.ID
		if staffID == "" {
			staffID = r.StaffID.String()
		}

		description := fmt.Sprintf("پرداخت معاش - %s (ریکارد ماه %d/%d)",
			salaryStaffLabel(r, staffID), r.Month.Int(), r.Year.Int())

		relatedID := staffID
		if relatedID == "" {
			relatedID = fmt.Sprintf("ریکارد %d", r.ID.Int())
		}

		out = n.add(out, core.Transaction{
			Date:        date,
			Description: description,
			Category:    "معاش",
			Amount:      r.TotalTaken.Decimal,
			Type:        core.Expense,
			Source:      core.SourceSalaries,
			RelatedName: salaryRelatedName(r, relatedID),
		})
	}
	return out
}

// salaryStaffLabel resolves the display name used inside the salary
// description: structured staff name, a breakdown entry's name, a
// synthesized head-count label for multi-entry breakdowns, a generic
// per-id label, else the plural fallback.
func salaryStaffLabel(r sources.SalaryRecord, staffID string) string {
	if r.Staff.Name != "" {
		return r.Staff.Name
	}
	if staffID != "" {
		if entry, ok := r.Breakdown[staffID]; ok && entry.Name != "" {
			return entry.Name
		}
	}
	if r.Breakdown != nil {
		// A present breakdown ends the chain even when it yields no name.
		names := breakdownNames(r.Breakdown)
		if len(r.Breakdown) == 1 && len(names) == 1 {
			return names[0]
		}
		if len(r.Breakdown) > 1 {
			return fmt.Sprintf("کارمندان (%d نفر)", len(r.Breakdown))
		}
		return "کارمندان"
	}
	if staffID != "" {
		return "کارمند " + staffID
	}
	return "کارمندان"
}

// salaryRelatedName resolves the related-entity column, which follows a
// shorter chain than the description label: a whole-record id maps to the
// aggregate-record label instead of a head count.
func salaryRelatedName(r sources.SalaryRecord, relatedID string) string {
	if r.Staff.Name != "" {
		return r.Staff.Name
	}
	if entry, ok := r.Breakdown[relatedID]; ok && entry.Name != "" {
		return entry.Name
	}
	if strings.HasPrefix(relatedID, "ریکارد ") {
		return "کارمندان (ریکارد کلی)"
	}
	return "کارمند " + relatedID
}

func breakdownNames(b sources.Breakdown) []string {
	var names []string
	for _, id := range b.SortedIDs() {
		if name := b[id].Name; name != "" {
			names = append(names, name)
		}
	}
	return names
}
