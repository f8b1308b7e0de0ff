package report

import (
	"testing"

	"github.com/shopspring/decimal"

	"mizan/internal/sources"
)

func TestOutstandingRentServiceFallback(t *testing.T) {
	b := sources.Batch{
		Rents: []sources.RentRecord{
			{
				// Record-level remainder wins over the breakdown.
				RecordDates:    sources.RecordDates{Date: "2024-05-01"},
				TotalRemainder: amount(400),
				Customers: sources.Breakdown{
					"1": {Remainder: amount(9999)},
				},
			},
			{
				// No record-level remainder: positive entries are summed,
				// negatives and zeros skipped.
				RecordDates: sources.RecordDates{Date: "2024-05-02"},
				Customers: sources.Breakdown{
					"1": {Remainder: amount(120)},
					"2": {Remainder: amount(0)},
					"3": {Remainder: amount(30)},
				},
			},
		},
		Services: []sources.ServiceRecord{
			{
				RecordDates:    sources.RecordDates{Date: "2024-05-03"},
				TotalRemainder: amount(50),
			},
		},
	}

	out := OutstandingBalances(mayWindow(), b)
	if want := decimal.NewFromInt(600); !out.RentService.Equal(want) {
		t.Errorf("rent/service outstanding = %s, want %s", out.RentService, want)
	}
	if !out.Salaries.IsZero() {
		t.Errorf("salary outstanding = %s, want 0", out.Salaries)
	}
}

func TestOutstandingSalaryFallback(t *testing.T) {
	b := sources.Batch{
		Salaries: []sources.SalaryRecord{
			{
				// Explicit remainder wins.
				RecordDates:    sources.RecordDates{Date: "2024-05-01"},
				TotalRemainder: amount(200),
				TotalAmount:    amount(1000),
				TotalTaken:     amount(100),
			},
			{
				// Derived from committed minus disbursed.
				RecordDates: sources.RecordDates{Date: "2024-05-02"},
				TotalAmount: amount(500),
				TotalTaken:  amount(380),
			},
			{
				// No committed total: nothing can be owed. The per-entity
				// remainders are never consulted for salaries.
				RecordDates: sources.RecordDates{Date: "2024-05-03"},
				TotalTaken:  amount(100),
				Breakdown: sources.Breakdown{
					"1": {Remainder: amount(9999)},
				},
			},
			{
				// Fully disbursed.
				RecordDates: sources.RecordDates{Date: "2024-05-04"},
				TotalAmount: amount(300),
				TotalTaken:  amount(300),
			},
		},
	}

	out := OutstandingBalances(mayWindow(), b)
	if want := decimal.NewFromInt(320); !out.Salaries.Equal(want) {
		t.Errorf("salary outstanding = %s, want %s", out.Salaries, want)
	}
}

func TestOutstandingRespectsWindow(t *testing.T) {
	b := sources.Batch{
		Rents: []sources.RentRecord{
			{RecordDates: sources.RecordDates{Date: "2024-04-30"}, TotalRemainder: amount(100)},
			{RecordDates: sources.RecordDates{Date: "2024-05-01"}, TotalRemainder: amount(40)},
			{TotalRemainder: amount(100)}, // unresolvable date
		},
	}
	out := OutstandingBalances(mayWindow(), b)
	if want := decimal.NewFromInt(40); !out.RentService.Equal(want) {
		t.Errorf("outstanding = %s, want only the in-window record (%s)", out.RentService, want)
	}
}
