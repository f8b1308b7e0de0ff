package report

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"mizan/internal/core"
	"mizan/internal/jalali"
	"mizan/internal/sources"
)

// SortLedger orders transactions newest first. Equal dates keep their
// emission order so pages stay stable across identical runs.
func SortLedger(ledger []core.Transaction) {
	sort.SliceStable(ledger, func(i, j int) bool {
		return ledger[i].Date.After(ledger[j].Date)
	})
}

// Summarize totals the ledger into revenue, expenses and net profit.
func Summarize(ledger []core.Transaction) core.Summary {
	var s core.Summary
	for _, t := range ledger {
		switch t.Type {
		case core.Income:
			s.TotalRevenue = s.TotalRevenue.Add(t.Amount)
		case core.Expense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
		}
	}
	s.NetProfit = s.TotalRevenue.Sub(s.TotalExpenses)
	return s
}

// MonthlyBuckets groups the ledger into calendar months keyed by the
// transaction's Gregorian UTC year-month and labeled with the Solar
// Hijri month the 15th of that period falls in. Buckets are sorted by
// period ascending.
func MonthlyBuckets(ledger []core.Transaction) []core.MonthlyBucket {
	byPeriod := make(map[string]*core.MonthlyBucket)
	for _, t := range ledger {
		d := t.Date.UTC()
		period := fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
		b, ok := byPeriod[period]
		if !ok {
			b = &core.MonthlyBucket{Period: period, Label: jalali.MonthLabel(period)}
			byPeriod[period] = b
		}
		switch t.Type {
		case core.Income:
			b.Revenue = b.Revenue.Add(t.Amount)
		case core.Expense:
			b.Expenses = b.Expenses.Add(t.Amount)
		}
		b.Profit = b.Revenue.Sub(b.Expenses)
	}

	out := make([]core.MonthlyBucket, 0, len(byPeriod))
	for _, b := range byPeriod {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

// IncomeDistribution breaks income down by category, largest share
// first. Only positive shares are reported.
func IncomeDistribution(ledger []core.Transaction) []core.CategoryShare {
	totals := make(map[string]decimal.Decimal)
	for _, t := range ledger {
		if t.Type != core.Income {
			continue
		}
		name := t.Category
		if name == "" {
			name = "سایر درآمدها"
		}
		totals[name] = totals[name].Add(t.Amount)
	}

	out := make([]core.CategoryShare, 0, len(totals))
	for name, value := range totals {
		if !value.IsPositive() {
			continue
		}
		out = append(out, core.CategoryShare{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Value.Equal(out[j].Value) {
			return out[i].Value.GreaterThan(out[j].Value)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Entities counts customers, active agreements and the distinct shops
// those agreements cover. These counts come straight from the reference
// collections and ignore the date window.
func Entities(customers []sources.CustomerRecord, agreements []sources.AgreementRecord) core.EntitySummary {
	shops := make(map[string]struct{})
	active := 0
	for _, a := range agreements {
		if a.Status != "Active" {
			continue
		}
		active++
		for _, id := range a.Shop {
			shops[id] = struct{}{}
		}
	}
	return core.EntitySummary{
		TotalCustomers:   len(customers),
		ActiveAgreements: active,
		ActiveShops:      len(shops),
	}
}
