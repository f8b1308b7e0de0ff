// Package export defines the outbound port for publishing a ledger
// snapshot to an external spreadsheet, with a Google Sheets adapter and
// an in-memory fake.
package export

import (
	"context"

	"mizan/internal/core"
)

// LedgerWriter publishes the transactions of one snapshot and returns a
// reference to where they were written.
type LedgerWriter interface {
	WriteLedger(ctx context.Context, snap core.LedgerSnapshot) (ref string, err error)
}
