package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mizan/internal/core"
	"mizan/internal/sources"
)

// State describes the engine's lifecycle for one report window.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// ErrStaleRun is returned by Run when a newer run started while this one
// was still fetching; the stale result is discarded without touching the
// published snapshot.
var ErrStaleRun = errors.New("report: superseded by a newer run")

// Engine fetches the source collections and publishes ledger snapshots.
// Runs may overlap; only the most recently started run is allowed to
// commit, so readers never observe an older window overwriting a newer
// one.
type Engine struct {
	provider sources.Provider

	gen atomic.Uint64

	mu       sync.RWMutex
	state    State
	snapshot core.LedgerSnapshot
}

func NewEngine(provider sources.Provider) *Engine {
	return &Engine{
		provider: provider,
		state:    StateIdle,
	}
}

// Snapshot returns the engine state and the last committed snapshot.
func (e *Engine) Snapshot() (State, core.LedgerSnapshot) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state, e.snapshot
}

// Run fetches all collections for the window, builds a snapshot,
// commits it and reports the resulting state. A run that was superseded
// while in flight returns ErrStaleRun and leaves the published snapshot
// untouched.
func (e *Engine) Run(ctx context.Context, w core.Window) (core.LedgerSnapshot, State, error) {
	gen := e.gen.Add(1)

	e.mu.Lock()
	e.state = StateLoading
	e.mu.Unlock()

	slog.InfoContext(ctx, "report run started",
		"window_start", w.Start, "window_end", w.End)

	batch := e.provider.FetchAll(ctx)
	snap, failed := BuildSnapshot(w, batch)

	st := StateReady
	if failed {
		st = StateError
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen.Load() {
		slog.InfoContext(ctx, "report run discarded as stale")
		return core.LedgerSnapshot{}, e.state, ErrStaleRun
	}

	e.snapshot = snap
	e.state = st
	if failed {
		slog.ErrorContext(ctx, "report run failed", "errors", snap.Errors)
	} else {
		slog.InfoContext(ctx, "report run committed",
			"transactions", len(snap.Ledger), "source_errors", len(snap.Errors))
	}
	return snap, st, nil
}

// BuildSnapshot derives a full snapshot from one fetched batch. It never
// propagates a panic from the derivation: a fault in any step yields the
// zero snapshot for the window with a processing error recorded, the
// same reset a total fetch failure produces.
func BuildSnapshot(w core.Window, batch sources.Batch) (snap core.LedgerSnapshot, failed bool) {
	// Every source down means there is nothing to aggregate.
	if len(batch.Errors) == sourceCount {
		snap = core.EmptySnapshot(w)
		snap.Errors = batch.Errors
		return snap, true
	}

	defer func() {
		if r := recover(); r != nil {
			snap = core.EmptySnapshot(w)
			snap.Errors = append(append([]string{}, batch.Errors...),
				fmt.Sprintf("خطا در پردازش اطلاعات: %v", r))
			failed = true
		}
	}()

	return derive(w, batch), false
}

// derive is a variable so tests can exercise the failure reset.
var derive = deriveSnapshot

func deriveSnapshot(w core.Window, batch sources.Batch) core.LedgerSnapshot {
	n := NewNormalizer(w, batch.Customers)
	var ledger []core.Transaction
	ledger = append(ledger, n.Expenditures(batch.Expenditures)...)
	ledger = append(ledger, n.Incomes(batch.Incomes)...)
	ledger = append(ledger, n.Rents(batch.Rents)...)
	ledger = append(ledger, n.Services(batch.Services)...)
	ledger = append(ledger, n.Salaries(batch.Salaries)...)
	SortLedger(ledger)

	return core.LedgerSnapshot{
		Window:      w,
		Summary:     Summarize(ledger),
		Entities:    Entities(batch.Customers, batch.Agreements),
		Buckets:     MonthlyBuckets(ledger),
		IncomeDist:  IncomeDistribution(ledger),
		Outstanding: OutstandingBalances(w, batch),
		Ledger:      ledger,
		Errors:      batch.Errors,
		FetchedAt:   time.Now().UTC(),
	}
}

// sourceCount is the number of upstream collections one run fetches.
const sourceCount = 7
