package teststubs

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/preston-bernstein/flag-sync-service/internal/domain"
)

// Outcome is one scripted FetchAll result.
type Outcome struct {
	Snapshot *domain.Snapshot
	Err      error
}

// StubRequestor is a test double for requestor.FeatureRequestor. With
// Outcomes set, results are returned in order and the last one repeats;
// otherwise Snapshot/Err are returned on every call.
type StubRequestor struct {
	Snapshot *domain.Snapshot
	Err      error
	Outcomes []Outcome

	Calls      atomic.Int32
	CloseCalls atomic.Int32
	Notify     chan struct{}

	notifyOnce sync.Once
}

// FetchAll returns the configured result while tracking calls.
func (s *StubRequestor) FetchAll(ctx context.Context) (*domain.Snapshot, error) {
	_ = ctx
	call := int(s.Calls.Add(1)) - 1
	if s.Notify != nil {
		s.notifyOnce.Do(func() { close(s.Notify) })
	}

	if len(s.Outcomes) > 0 {
		if call >= len(s.Outcomes) {
			call = len(s.Outcomes) - 1
		}
		out := s.Outcomes[call]
		return out.Snapshot, out.Err
	}
	return s.Snapshot, s.Err
}

// Close tracks release of the requestor's resources.
func (s *StubRequestor) Close() error {
	s.CloseCalls.Add(1)
	return nil
}
