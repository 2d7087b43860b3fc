package poller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/preston-bernstein/flag-sync-service/internal/async"
	"github.com/preston-bernstein/flag-sync-service/internal/logging"
	"github.com/preston-bernstein/flag-sync-service/internal/metrics"
	"github.com/preston-bernstein/flag-sync-service/internal/requestor"
	"github.com/preston-bernstein/flag-sync-service/internal/store"
)

const defaultInterval = 30 * time.Second

// sourceName labels this data source in logs and metrics.
const sourceName = "poll"

// ErrAlreadyStarted is returned when Start is called twice; a processor
// runs one lifetime and is never restarted.
var ErrAlreadyStarted = errors.New("poller: already started")

// State is the lifecycle state of a Processor.
type State int

const (
	StateNotStarted State = iota
	StatePolling
	StateInitialized
	StatePermanentlyFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StatePolling:
		return "polling"
	case StateInitialized:
		return "initialized"
	case StatePermanentlyFailed:
		return "permanently_failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Processor periodically fetches the complete flag+segment snapshot and
// keeps the data store synchronized. It reports first-success or
// first-unrecoverable-failure once, through the completion signal
// returned by Start. Recoverable failures are absorbed: logged and
// retried on the same schedule, indefinitely.
type Processor struct {
	requestor requestor.FeatureRequestor
	store     store.DataStore
	logger    *slog.Logger
	metrics   *metrics.Recorder
	interval  time.Duration
	now       func() time.Time

	ready     *async.Signal
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	state  State
	inited bool

	statusMu sync.RWMutex
	status   Status
}

// Status describes the recent health of the polling loop.
type Status struct {
	State               State
	Initialized         bool
	ConsecutiveFailures int
	LastError           string
	LastAttempt         time.Time
	LastSuccess         time.Time
}

// New constructs a Processor with sane defaults. The interval must be
// positive; anything else falls back to the default.
func New(req requestor.FeatureRequestor, dataStore store.DataStore, logger *slog.Logger, recorder *metrics.Recorder, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Processor{
		requestor: req,
		store:     dataStore,
		logger:    logger,
		metrics:   recorder,
		interval:  interval,
		now:       time.Now,
		ready:     async.NewSignal(),
		done:      make(chan struct{}),
	}
}

// Start transitions the processor to polling, schedules an immediate
// first fetch on a background goroutine, and returns the completion
// signal. The signal resolves on the first successful poll (success) or
// the first unrecoverable failure (failure with the recorded reason);
// callers waiting on it supply their own timeout. A second Start fails
// with ErrAlreadyStarted.
func (p *Processor) Start(ctx context.Context) (*async.Signal, error) {
	p.mu.Lock()
	if p.state != StateNotStarted {
		p.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	p.state = StatePolling
	p.mu.Unlock()

	go p.run(ctx)
	return p.ready, nil
}

func (p *Processor) run(ctx context.Context) {
	logging.Info(p.logger, "poll processor started",
		slog.String(logging.FieldSource, sourceName),
		slog.Int64(logging.FieldDurationMS, p.interval.Milliseconds()),
	)

	// Fires immediately for the first attempt, then re-arms relative to
	// each attempt's start so a slow fetch neither compresses the next
	// interval nor stacks attempts.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info(p.logger, "poll processor stopped")
			return
		case <-p.done:
			logging.Info(p.logger, "poll processor stopped")
			return
		case <-timer.C:
			select {
			case <-ctx.Done():
				logging.Info(p.logger, "poll processor stopped")
				return
			case <-p.done:
				logging.Info(p.logger, "poll processor stopped")
				return
			default:
			}
			start := p.now()
			if stopped := p.pollOnce(ctx); stopped {
				return
			}
			next := p.interval - p.now().Sub(start)
			if next < 0 {
				next = 0
			}
			timer.Reset(next)
		}
	}
}

// pollOnce runs a single fetch attempt and reports whether the loop
// should stop.
func (p *Processor) pollOnce(ctx context.Context) bool {
	start := time.Now()
	p.recordAttempt(start)

	snapshot, err := p.requestor.FetchAll(ctx)
	if p.metrics != nil {
		p.metrics.RecordSyncAttempt(sourceName, time.Since(start), err)
	}

	if err != nil {
		p.recordFailure(err, start)
		if isRecoverable(err) {
			logging.Warn(p.logger, "flag poll failed, will retry",
				"error", err,
				slog.Int64(logging.FieldDurationMS, time.Since(start).Milliseconds()),
			)
			return false
		}

		logging.Error(p.logger, "flag poll failed permanently, stopping", err)
		p.mu.Lock()
		if p.state == StateClosed {
			p.mu.Unlock()
			return true
		}
		p.state = StatePermanentlyFailed
		p.ready.Resolve(err)
		p.mu.Unlock()
		return true
	}

	p.mu.Lock()
	if p.state == StateClosed {
		// The fetch raced Close; its result is discarded.
		p.mu.Unlock()
		return true
	}
	if storeErr := p.store.ReplaceAll(snapshot); storeErr != nil {
		p.mu.Unlock()
		logging.Error(p.logger, "flag store update failed", storeErr)
		p.recordFailure(storeErr, start)
		return false
	}
	if p.state == StatePolling {
		// Resolution happens before the state flip so no observer can
		// see Initialized while the signal is still pending.
		p.ready.Resolve(nil)
		p.state = StateInitialized
		p.inited = true
	}
	p.mu.Unlock()

	p.recordSuccess(start)
	logging.Info(p.logger, "flag poll refreshed data",
		slog.Int(logging.FieldFlagCount, len(snapshot.Flags)),
		slog.Int(logging.FieldSegCount, len(snapshot.Segments)),
		slog.Int64(logging.FieldDurationMS, time.Since(start).Milliseconds()),
	)
	return false
}

// Initialized reports whether a snapshot has ever been stored. It is
// sticky: later recoverable failures, permanent failure, or Close do
// not clear it.
func (p *Processor) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inited
}

// Close stops the polling loop, cancels any pending attempt, and
// releases the requestor's resources. It is idempotent and safe from
// any goroutine, including during an in-flight fetch: that fetch is
// allowed to finish and its result is discarded. Close never resolves
// the completion signal; a caller still waiting on it observes its own
// timeout rather than a fabricated failure.
func (p *Processor) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.state = StateClosed
		p.mu.Unlock()
		close(p.done)
		if err := p.requestor.Close(); err != nil {
			logging.Error(p.logger, "requestor close failed", err)
		}
	})
	return nil
}

// Status returns a snapshot of the processor's recent health.
func (p *Processor) Status() Status {
	p.mu.Lock()
	state, inited := p.state, p.inited
	p.mu.Unlock()

	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	status := p.status
	status.State = state
	status.Initialized = inited
	return status
}

func (p *Processor) recordAttempt(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.LastAttempt = at
}

func (p *Processor) recordSuccess(at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	p.status.LastSuccess = at
}

func (p *Processor) recordFailure(err error, at time.Time) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.status.ConsecutiveFailures++
	if err != nil {
		p.status.LastError = err.Error()
	}
	p.status.LastAttempt = at
}

// isRecoverable reports whether a fetch failure may resolve on a later
// retry. Transport-level failures (resets, timeouts, DNS) always can.
// HTTP failures can too, except for 4xx statuses other than 400, 408,
// and 429: auth and other client errors will not fix themselves by
// asking again.
func isRecoverable(err error) bool {
	se, ok := requestor.AsStatusError(err)
	if !ok {
		return true
	}
	if se.Code >= 400 && se.Code < 500 {
		switch se.Code {
		case http.StatusBadRequest, http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		}
		return false
	}
	return true
}
