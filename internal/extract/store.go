package extract

import "context"

// Store supplies one read-only warehouse snapshot per report run.
type Store interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}
