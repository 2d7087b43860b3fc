package server

import (
	"context"

	"github.com/preston-bernstein/flag-sync-service/internal/async"
)

// DataSource is the lifecycle every data source implementation shares.
// Start returns a completion signal that resolves exactly once: with
// nil after the first successful sync, or with the terminal error when
// the source can never succeed.
type DataSource interface {
	Start(ctx context.Context) (*async.Signal, error)
	Initialized() bool
	Close() error
}
