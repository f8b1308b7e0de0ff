package report

import (
	"github.com/shopspring/decimal"

	"mizan/internal/core"
	"mizan/internal/sources"
)

// OutstandingBalances sums the amounts still owed within the window.
//
// Rent and service records prefer the record-level total_remainder; when
// that is absent or non-positive, the positive per-entity remainders are
// summed instead, but only if a breakdown is present at all. Salary
// records fall back differently: when total_remainder gives nothing, the
// remainder is derived as total_amount minus total_taken, provided the
// committed total is positive and the difference is owed. The asymmetry
// follows the bookkeeping convention for each collection.
func OutstandingBalances(w core.Window, b sources.Batch) core.Outstanding {
	var out core.Outstanding
	for _, r := range b.Rents {
		if inWindow(w, r.RecordDates) {
			out.RentService = out.RentService.Add(recordRemainder(r.TotalRemainder.Decimal, r.Customers))
		}
	}
	for _, r := range b.Services {
		if inWindow(w, r.RecordDates) {
			out.RentService = out.RentService.Add(recordRemainder(r.TotalRemainder.Decimal, r.Customers))
		}
	}
	for _, r := range b.Salaries {
		if inWindow(w, r.RecordDates) {
			out.Salaries = out.Salaries.Add(salaryRemainder(r))
		}
	}
	return out
}

func inWindow(w core.Window, d sources.RecordDates) bool {
	t, ok := d.Resolve()
	return ok && w.Contains(t)
}

func recordRemainder(total decimal.Decimal, breakdown sources.Breakdown) decimal.Decimal {
	if total.IsPositive() {
		return total
	}
	sum := decimal.Zero
	for _, entry := range breakdown {
		if entry.Remainder.IsPositive() {
			sum = sum.Add(entry.Remainder.Decimal)
		}
	}
	return sum
}

func salaryRemainder(r sources.SalaryRecord) decimal.Decimal {
	if r.TotalRemainder.IsPositive() {
		return r.TotalRemainder.Decimal
	}
	if !r.TotalAmount.IsPositive() {
		return decimal.Zero
	}
	if diff := r.TotalAmount.Sub(r.TotalTaken.Decimal); diff.IsPositive() {
		return diff
	}
	return decimal.Zero
}
