package store

import "github.com/preston-bernstein/flag-sync-service/internal/domain"

// DataStore holds the latest known flags and segments. A data source is
// the only writer; readers may run concurrently with writes and must
// never observe a half-applied snapshot.
type DataStore interface {
	// ReplaceAll swaps the entire contents for the given snapshot as
	// one atomic unit. Applying the same snapshot twice is harmless.
	ReplaceAll(snapshot *domain.Snapshot) error

	// IsInitialized reports whether any ReplaceAll has ever succeeded.
	// Once true it stays true for the lifetime of the store.
	IsInitialized() bool

	Flag(key string) (domain.Flag, bool)
	AllFlags() map[string]domain.Flag
	Segment(key string) (domain.Segment, bool)
	AllSegments() map[string]domain.Segment
}
