package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Window is the inclusive date range of one aggregation run, at day
	// granularity: the start is clamped to midnight and the end to the
	// last millisecond of its day, both UTC.
	Window struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}

	// MonthlyBucket aggregates one Gregorian year-month. Period orders the
	// buckets; Label is the Solar-Hijri display name and is never used for
	// sorting.
	MonthlyBucket struct {
		Period   string          `json:"period"` // "2024-05"
		Label    string          `json:"monthLabel"`
		Revenue  decimal.Decimal `json:"revenue"`
		Expenses decimal.Decimal `json:"expenses"`
		Profit   decimal.Decimal `json:"profit"`
	}

	// CategoryShare is one slice of the income distribution.
	CategoryShare struct {
		Name  string          `json:"name"`
		Value decimal.Decimal `json:"value"`
	}

	Summary struct {
		TotalRevenue  decimal.Decimal `json:"totalRevenue"`
		TotalExpenses decimal.Decimal `json:"totalExpenses"`
		NetProfit     decimal.Decimal `json:"netProfit"`
	}

	// EntitySummary carries the non-financial counters shown next to the
	// ledger: customers on file, agreements currently active and the
	// distinct shops those agreements cover.
	EntitySummary struct {
		TotalCustomers   int `json:"totalCustomers"`
		ActiveAgreements int `json:"activeAgreements"`
		ActiveShops      int `json:"activeShops"`
	}

	// Outstanding holds the two unpaid-balance totals. They are computed
	// with intentionally different fallbacks, see report.Outstanding.
	Outstanding struct {
		RentService decimal.Decimal `json:"rentServiceOutstanding"`
		Salaries    decimal.Decimal `json:"salaryOutstanding"`
	}

	// LedgerSnapshot is the complete output of one aggregation run. It is
	// replaced atomically per run and is the only state the engine keeps.
	LedgerSnapshot struct {
		Window      Window          `json:"window"`
		Summary     Summary         `json:"summary"`
		Entities    EntitySummary   `json:"entities"`
		Buckets     []MonthlyBucket `json:"monthlyBuckets"`
		IncomeDist  []CategoryShare `json:"incomeDistribution"`
		Outstanding Outstanding     `json:"outstanding"`
		Ledger      []Transaction   `json:"-"`
		Errors      []string        `json:"errors,omitempty"`
		FetchedAt   time.Time       `json:"fetchedAt"`
	}

	// Filters are the local, non-refetching view filters.
	Filters struct {
		Search   string
		Category string
		Type     TxType
	}

	// Page is one slice of the filtered ledger.
	Page struct {
		Items       []Transaction `json:"items"`
		TotalItems  int           `json:"totalItems"`
		TotalPages  int           `json:"totalPages"`
		CurrentPage int           `json:"currentPage"`
	}
)

// NewWindow builds a day-granular window from two instants.
func NewWindow(start, end time.Time) Window {
	s := start.UTC()
	e := end.UTC()
	return Window{
		Start: time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC),
		End:   time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 999000000, time.UTC),
	}
}

// Contains reports whether t falls inside the window, inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// EmptySnapshot is the zero baseline every derived field resets to when a
// pipeline run fails.
func EmptySnapshot(w Window) LedgerSnapshot {
	return LedgerSnapshot{
		Window: w,
		Summary: Summary{
			TotalRevenue:  decimal.Zero,
			TotalExpenses: decimal.Zero,
			NetProfit:     decimal.Zero,
		},
		Outstanding: Outstanding{
			RentService: decimal.Zero,
			Salaries:    decimal.Zero,
		},
	}
}
