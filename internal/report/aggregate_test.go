package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mizan/internal/core"
	"mizan/internal/sources"
)

func tx(typ core.TxType, category string, amount int64, date time.Time) core.Transaction {
	return core.Transaction{
		Date:     date,
		Category: category,
		Amount:   decimal.NewFromInt(amount),
		Type:     typ,
	}
}

func TestSummarize(t *testing.T) {
	d := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	s := Summarize([]core.Transaction{
		tx(core.Income, "کرایه", 500, d),
		tx(core.Income, "فروش", 300, d),
		tx(core.Expense, "معاش", 200, d),
	})
	if !s.TotalRevenue.Equal(decimal.NewFromInt(800)) {
		t.Errorf("revenue = %s, want 800", s.TotalRevenue)
	}
	if !s.TotalExpenses.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expenses = %s, want 200", s.TotalExpenses)
	}
	if !s.NetProfit.Equal(decimal.NewFromInt(600)) {
		t.Errorf("profit = %s, want 600", s.NetProfit)
	}
}

func TestMonthlyBuckets(t *testing.T) {
	may := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	june := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	buckets := MonthlyBuckets([]core.Transaction{
		tx(core.Income, "کرایه", 500, june),
		tx(core.Income, "کرایه", 300, may),
		tx(core.Expense, "معاش", 100, may),
	})

	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if buckets[0].Period != "2024-05" || buckets[1].Period != "2024-06" {
		t.Errorf("periods = %q, %q, want ascending order", buckets[0].Period, buckets[1].Period)
	}
	if buckets[0].Label != "ثور 1403" {
		t.Errorf("label = %q, want the Solar Hijri month", buckets[0].Label)
	}
	if !buckets[0].Revenue.Equal(decimal.NewFromInt(300)) ||
		!buckets[0].Expenses.Equal(decimal.NewFromInt(100)) ||
		!buckets[0].Profit.Equal(decimal.NewFromInt(200)) {
		t.Errorf("may bucket = %+v", buckets[0])
	}
	if !buckets[1].Profit.Equal(decimal.NewFromInt(500)) {
		t.Errorf("june profit = %s, want 500", buckets[1].Profit)
	}
}

func TestBucketsAgreeWithSummary(t *testing.T) {
	ledger := []core.Transaction{
		tx(core.Income, "کرایه", 500, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)),
		tx(core.Income, "فروش", 120, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)),
		tx(core.Expense, "معاش", 310, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)),
		tx(core.Expense, "برق", 45, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	}
	summary := Summarize(ledger)
	buckets := MonthlyBuckets(ledger)

	revenue, expenses := decimal.Zero, decimal.Zero
	for _, b := range buckets {
		revenue = revenue.Add(b.Revenue)
		expenses = expenses.Add(b.Expenses)
	}
	if !revenue.Equal(summary.TotalRevenue) {
		t.Errorf("bucket revenue = %s, summary = %s", revenue, summary.TotalRevenue)
	}
	if !expenses.Equal(summary.TotalExpenses) {
		t.Errorf("bucket expenses = %s, summary = %s", expenses, summary.TotalExpenses)
	}
}

func TestIncomeDistribution(t *testing.T) {
	d := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	dist := IncomeDistribution([]core.Transaction{
		tx(core.Income, "کرایه", 200, d),
		tx(core.Income, "فیس خدمات", 700, d),
		tx(core.Income, "کرایه", 300, d),
		tx(core.Expense, "معاش", 900, d), // expenses never appear
	})

	if len(dist) != 2 {
		t.Fatalf("got %d shares, want 2: %+v", len(dist), dist)
	}
	if dist[0].Name != "فیس خدمات" || !dist[0].Value.Equal(decimal.NewFromInt(700)) {
		t.Errorf("largest share = %+v", dist[0])
	}
	if dist[1].Name != "کرایه" || !dist[1].Value.Equal(decimal.NewFromInt(500)) {
		t.Errorf("second share = %+v", dist[1])
	}
}

func TestEntities(t *testing.T) {
	customers := []sources.CustomerRecord{{ID: 1}, {ID: 2}, {ID: 3}}
	agreements := []sources.AgreementRecord{
		{ID: 1, Status: "Active", Shop: sources.ShopRefs{"3", "4"}},
		{ID: 2, Status: "Active", Shop: sources.ShopRefs{"4"}},
		{ID: 3, Status: "Expired", Shop: sources.ShopRefs{"9"}},
		{ID: 4, Status: "Active"},
	}

	e := Entities(customers, agreements)
	if e.TotalCustomers != 3 {
		t.Errorf("customers = %d, want 3", e.TotalCustomers)
	}
	if e.ActiveAgreements != 3 {
		t.Errorf("active agreements = %d, want 3", e.ActiveAgreements)
	}
	if e.ActiveShops != 2 {
		t.Errorf("active shops = %d, want 2 (expired agreement's shop excluded)", e.ActiveShops)
	}
}

func TestSortLedgerNewestFirst(t *testing.T) {
	d1 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	ledger := []core.Transaction{
		{Key: "a", Date: d1},
		{Key: "b", Date: d2},
		{Key: "c", Date: d2},
	}
	SortLedger(ledger)
	if ledger[0].Key != "b" || ledger[1].Key != "c" || ledger[2].Key != "a" {
		t.Errorf("order = %q %q %q, want b c a (stable for equal dates)",
			ledger[0].Key, ledger[1].Key, ledger[2].Key)
	}
}
