// Package memory provides an in-memory export.LedgerWriter for tests
// and local development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"mizan/internal/core"
	"mizan/internal/export"
)

type Store struct {
	mu        sync.Mutex
	snapshots []core.LedgerSnapshot
}

var _ export.LedgerWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// WriteLedger stores the snapshot and returns a synthetic reference.
func (s *Store) WriteLedger(_ context.Context, snap core.LedgerSnapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
	return fmt.Sprintf("mem:%d", len(s.snapshots)), nil
}

// Snapshots returns a copy of everything written so far.
func (s *Store) Snapshots() []core.LedgerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.LedgerSnapshot(nil), s.snapshots...)
}
