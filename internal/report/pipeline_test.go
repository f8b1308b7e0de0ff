package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"mizan/internal/core"
	"mizan/internal/sources"
)

func TestBuildSnapshotPartialFailure(t *testing.T) {
	batch := sources.Batch{
		Rents: []sources.RentRecord{{
			ID:          1,
			RecordDates: sources.RecordDates{Date: "2024-05-10"},
			TotalTaken:  amount(300),
		}},
		Errors: []string{"خطا در دریافت /staff/salaries/: یافت نشد."},
	}

	snap, failed := BuildSnapshot(mayWindow(), batch)
	if failed {
		t.Fatal("partial failure must still produce a snapshot")
	}
	if len(snap.Ledger) != 1 {
		t.Fatalf("ledger = %+v, want the healthy source's transaction", snap.Ledger)
	}
	if !snap.Summary.TotalRevenue.Equal(decimal.NewFromInt(300)) {
		t.Errorf("revenue = %s, want 300", snap.Summary.TotalRevenue)
	}
	if len(snap.Errors) != 1 {
		t.Errorf("errors = %v, want the source error carried through", snap.Errors)
	}
}

func TestBuildSnapshotAllSourcesFailed(t *testing.T) {
	batch := sources.Batch{
		Errors: []string{"e1", "e2", "e3", "e4", "e5", "e6", "e7"},
	}

	snap, failed := BuildSnapshot(mayWindow(), batch)
	if !failed {
		t.Fatal("all sources down must fail the run")
	}
	if !snap.Summary.TotalRevenue.IsZero() || !snap.Summary.NetProfit.IsZero() {
		t.Errorf("summary = %+v, want the zero baseline", snap.Summary)
	}
	if len(snap.Errors) != 7 {
		t.Errorf("errors = %v, want all seven", snap.Errors)
	}
}

func TestEngineRunCommitsSnapshot(t *testing.T) {
	provider := &sources.Fixture{Batch: sources.Batch{
		Incomes: []sources.IncomeRecord{{
			ID:          1,
			Amount:      amount(250),
			RecordDates: sources.RecordDates{Date: "2024-05-05"},
		}},
	}}
	e := NewEngine(provider)

	if state, _ := e.Snapshot(); state != StateIdle {
		t.Fatalf("initial state = %q, want idle", state)
	}

	snap, st, err := e.Run(context.Background(), mayWindow())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st != StateReady {
		t.Errorf("run state = %q, want ready", st)
	}
	if !snap.Summary.TotalRevenue.Equal(decimal.NewFromInt(250)) {
		t.Errorf("revenue = %s, want 250", snap.Summary.TotalRevenue)
	}

	state, published := e.Snapshot()
	if state != StateReady {
		t.Errorf("state = %q, want ready", state)
	}
	if len(published.Ledger) != 1 {
		t.Errorf("published ledger = %+v, want one transaction", published.Ledger)
	}
}

func TestEngineRunAllFailedSetsErrorState(t *testing.T) {
	provider := &sources.Fixture{Batch: sources.Batch{
		Errors: []string{"e1", "e2", "e3", "e4", "e5", "e6", "e7"},
	}}
	e := NewEngine(provider)

	if _, st, err := e.Run(context.Background(), mayWindow()); err != nil {
		t.Fatalf("Run: %v", err)
	} else if st != StateError {
		t.Errorf("run state = %q, want error", st)
	}
	state, snap := e.Snapshot()
	if state != StateError {
		t.Errorf("state = %q, want error", state)
	}
	if len(snap.Errors) != 7 {
		t.Errorf("errors = %v, want all seven", snap.Errors)
	}
}

// gatedProvider blocks its first FetchAll until released, so a test can
// interleave two runs deterministically.
type gatedProvider struct {
	entered chan struct{}
	release chan struct{}
	stale   sources.Batch
	fresh   sources.Batch

	mu    sync.Mutex
	calls int
}

func (p *gatedProvider) FetchAll(context.Context) sources.Batch {
	p.mu.Lock()
	p.calls++
	first := p.calls == 1
	p.mu.Unlock()

	if first {
		close(p.entered)
		<-p.release
		return p.stale
	}
	return p.fresh
}

func TestEngineDiscardsStaleRun(t *testing.T) {
	provider := &gatedProvider{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		stale: sources.Batch{Incomes: []sources.IncomeRecord{{
			ID: 1, Amount: amount(111), RecordDates: sources.RecordDates{Date: "2024-05-05"},
		}}},
		fresh: sources.Batch{Incomes: []sources.IncomeRecord{{
			ID: 2, Amount: amount(222), RecordDates: sources.RecordDates{Date: "2024-05-06"},
		}}},
	}
	e := NewEngine(provider)

	staleErr := make(chan error, 1)
	go func() {
		_, _, err := e.Run(context.Background(), mayWindow())
		staleErr <- err
	}()
	<-provider.entered

	// A second run starts while the first is still fetching and commits.
	snap, _, err := e.Run(context.Background(), mayWindow())
	if err != nil {
		t.Fatalf("fresh run: %v", err)
	}
	if !snap.Summary.TotalRevenue.Equal(decimal.NewFromInt(222)) {
		t.Fatalf("fresh revenue = %s, want 222", snap.Summary.TotalRevenue)
	}

	close(provider.release)
	if err := <-staleErr; !errors.Is(err, ErrStaleRun) {
		t.Fatalf("stale run error = %v, want ErrStaleRun", err)
	}

	state, published := e.Snapshot()
	if state != StateReady {
		t.Errorf("state = %q, want ready", state)
	}
	if !published.Summary.TotalRevenue.Equal(decimal.NewFromInt(222)) {
		t.Errorf("published revenue = %s, the stale run must not overwrite", published.Summary.TotalRevenue)
	}
}

func TestBuildSnapshotRecoversFromPanic(t *testing.T) {
	orig := derive
	derive = func(core.Window, sources.Batch) core.LedgerSnapshot {
		panic("boom")
	}
	defer func() { derive = orig }()

	batch := sources.Batch{
		Errors: []string{"خطا در دریافت /rent/: خطای شبکه."},
	}
	snap, failed := BuildSnapshot(mayWindow(), batch)
	if !failed {
		t.Fatal("a derivation fault must fail the run")
	}
	if len(snap.Ledger) != 0 || !snap.Summary.TotalRevenue.IsZero() {
		t.Errorf("snapshot = %+v, want the zero baseline", snap.Summary)
	}
	if len(snap.Errors) != 2 {
		t.Fatalf("errors = %v, want the source error plus the processing error", snap.Errors)
	}
	if want := "خطا در پردازش اطلاعات: boom"; !strings.Contains(snap.Errors[1], want) {
		t.Errorf("errors = %v, want %q", snap.Errors, want)
	}
}
