package store

import (
	"sync"

	"github.com/preston-bernstein/flag-sync-service/internal/domain"
)

// MemoryStore keeps a thread-safe snapshot of flags and segments in
// memory. ReplaceAll swaps whole maps under the write lock, so readers
// see either the previous snapshot or the new one, never a mix.
type MemoryStore struct {
	mu       sync.RWMutex
	flags    map[string]domain.Flag
	segments map[string]domain.Segment
	inited   bool
}

// NewMemoryStore constructs an empty, uninitialized MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		flags:    make(map[string]domain.Flag),
		segments: make(map[string]domain.Segment),
	}
}

// ReplaceAll replaces the existing contents with the new snapshot.
func (s *MemoryStore) ReplaceAll(snapshot *domain.Snapshot) error {
	flags := make(map[string]domain.Flag, len(snapshot.Flags))
	for k, f := range snapshot.Flags {
		flags[k] = f
	}
	segments := make(map[string]domain.Segment, len(snapshot.Segments))
	for k, seg := range snapshot.Segments {
		segments[k] = seg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = flags
	s.segments = segments
	s.inited = true
	return nil
}

// IsInitialized reports whether a snapshot has ever been applied.
func (s *MemoryStore) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inited
}

// Flag retrieves a flag by key.
func (s *MemoryStore) Flag(key string) (domain.Flag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flags[key]
	return f, ok
}

// AllFlags returns a copy of the current flags.
func (s *MemoryStore) AllFlags() map[string]domain.Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Flag, len(s.flags))
	for k, f := range s.flags {
		result[k] = f
	}
	return result
}

// Segment retrieves a segment by key.
func (s *MemoryStore) Segment(key string) (domain.Segment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seg, ok := s.segments[key]
	return seg, ok
}

// AllSegments returns a copy of the current segments.
func (s *MemoryStore) AllSegments() map[string]domain.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Segment, len(s.segments))
	for k, seg := range s.segments {
		result[k] = seg
	}
	return result
}
