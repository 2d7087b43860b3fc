package requestor

import (
	"context"

	"github.com/preston-bernstein/flag-sync-service/internal/domain"
)

// FeatureRequestor performs one remote fetch of the complete flag and
// segment state. Implementations perform exactly one logical fetch per
// call: retry scheduling for failed fetches belongs to the caller, not
// here. Close releases any resources held for fetching.
type FeatureRequestor interface {
	FetchAll(ctx context.Context) (*domain.Snapshot, error)
	Close() error
}
