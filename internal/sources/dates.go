package sources

import (
	"time"

	"mizan/internal/jalali"
)

// Timestamp layouts the upstream emits, most specific first.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Resolve extracts the canonical instant of a record.
//
// The five explicit timestamp fields are tried in priority order; the
// first that parses to an instant after 1970 wins (epoch-zero sentinels
// are rejected by the year guard). Exact timestamps always beat the
// legacy fallback, which reads year and month (or its "time" alias) as a
// Solar-Hijri pair anchored mid-month. ok=false means the caller must
// skip the record; it never fails the batch.
func (d RecordDates) Resolve() (time.Time, bool) {
	for _, s := range []string{d.PaymentDate, d.TransactionDate, d.Date, d.CreatedAt, d.UpdatedAt} {
		if s == "" {
			continue
		}
		if t, ok := parseInstant(s); ok && t.Year() > 1970 {
			return t, true
		}
	}

	month := d.Month.Int()
	if month == 0 {
		month = d.Time.Int()
	}
	if year := d.Year.Int(); year != 0 && month >= 1 && month <= 12 {
		if t, ok := jalali.ToGregorian(year, month); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseInstant(s string) (time.Time, bool) {
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
