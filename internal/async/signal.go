package async

import (
	"context"
	"sync"
)

// Signal is a single-resolution completion handle. It resolves exactly
// once, to success (nil error) or failure (non-nil error), and any
// number of waiters observe the same resolution. Waiters supply their
// own timeout via context; timing out does not affect the signal.
type Signal struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewSignal returns an unresolved Signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Resolve records the outcome and wakes all waiters. Only the first
// call has any effect; the write-once guarantee is structural, not a
// caller convention.
func (s *Signal) Resolve(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Done returns a channel that is closed once the signal resolves.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Resolved reports whether the signal has resolved, without blocking.
func (s *Signal) Resolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Err returns the recorded failure reason, or nil for success. It is
// only meaningful after Done is closed.
func (s *Signal) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait blocks until the signal resolves or ctx expires. It returns the
// recorded failure reason (nil on success), or ctx.Err() on timeout.
// A timed-out waiter leaves the eventual resolution untouched.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
