package sources

import "context"

// Fixture is an in-memory Provider for tests and local development. It
// returns the configured batch as-is, including any injected per-source
// error entries.
type Fixture struct {
	Batch Batch
}

var _ Provider = (*Fixture)(nil)

func (f *Fixture) FetchAll(_ context.Context) Batch {
	return f.Batch
}
