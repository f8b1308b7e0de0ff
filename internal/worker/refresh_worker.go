// Package worker rebuilds the report in the background: on demand via
// AMQP refresh messages and periodically as a backstop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mizan/internal/amqp"
	"mizan/internal/core"
	"mizan/internal/export"
	"mizan/internal/report"
	"mizan/internal/storage"
)

// RefreshWorker runs the report engine and archives each completed run.
// The exporter is optional.
type RefreshWorker struct {
	engine     *report.Engine
	repo       *storage.SQLiteRepository
	exporter   export.LedgerWriter
	windowDays int
}

func NewRefreshWorker(engine *report.Engine, repo *storage.SQLiteRepository, exporter export.LedgerWriter, windowDays int) *RefreshWorker {
	return &RefreshWorker{
		engine:     engine,
		repo:       repo,
		exporter:   exporter,
		windowDays: windowDays,
	}
}

// HandleRefreshMessage processes a single refresh request from AMQP.
func (w *RefreshWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	days := msg.WindowDays
	if days < 1 {
		days = w.windowDays
	}

	slog.InfoContext(ctx, "Processing refresh message",
		"window_days", days,
		"reason", msg.Reason)

	return w.refresh(ctx, days)
}

// RunPeriodic triggers a refresh on every tick until the context is done.
func (w *RefreshWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.refresh(ctx, w.windowDays); err != nil {
				slog.ErrorContext(ctx, "Periodic refresh failed", "error", err)
			}
		}
	}
}

func (w *RefreshWorker) refresh(ctx context.Context, days int) error {
	now := time.Now().UTC()
	window := core.NewWindow(now.AddDate(0, 0, -days+1), now)

	snap, state, err := w.engine.Run(ctx, window)
	if errors.Is(err, report.ErrStaleRun) {
		// A newer run took over; nothing left to do for this one.
		return nil
	}
	if err != nil {
		return fmt.Errorf("run report: %w", err)
	}

	if w.repo != nil {
		if _, err := w.repo.SaveRun(ctx, string(state), snap); err != nil {
			return fmt.Errorf("archive run: %w", err)
		}
	}

	if w.exporter != nil && state == report.StateReady {
		ref, err := w.exporter.WriteLedger(ctx, snap)
		if err != nil {
			// Export failures don't invalidate the committed snapshot.
			slog.ErrorContext(ctx, "Ledger export failed", "error", err)
			return nil
		}
		slog.InfoContext(ctx, "Ledger exported", "sheets_ref", ref)
	}

	return nil
}
