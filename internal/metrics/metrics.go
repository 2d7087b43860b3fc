package metrics

import (
	"sync"
	"time"
)

type sourceStats struct {
	attempts        int
	failures        int
	lastError       string
	lastSuccess     time.Time
	lastPollLatency time.Duration
}

// Recorder captures lightweight, in-memory metrics about data source
// sync attempts, optionally mirrored to OpenTelemetry instruments.
type Recorder struct {
	mu    sync.Mutex
	stats map[string]*sourceStats
	otel  *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		stats: make(map[string]*sourceStats),
		otel:  otel,
	}
}

// RecordSyncAttempt increments counters for one sync attempt and stores
// the observed latency and outcome.
func (r *Recorder) RecordSyncAttempt(source string, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.ensureStats(source)
	stats.attempts++
	stats.lastPollLatency = duration
	if err != nil {
		stats.failures++
		stats.lastError = err.Error()
	} else {
		stats.lastError = ""
		stats.lastSuccess = time.Now()
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordSyncAttempt(source, duration, err)
	}
}

// SyncAttempts returns the total attempts recorded for a source.
func (r *Recorder) SyncAttempts(source string) int {
	return r.Snapshot(source).Attempts
}

// SyncFailures returns the total failed attempts recorded for a source.
func (r *Recorder) SyncFailures(source string) int {
	return r.Snapshot(source).Failures
}

// Snapshot is a copy of the current stats for one source.
type Snapshot struct {
	Attempts        int
	Failures        int
	LastError       string
	LastSuccess     time.Time
	LastPollLatency time.Duration
}

func (r *Recorder) Snapshot(source string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	stats := r.snapshot(source)
	return Snapshot{
		Attempts:        stats.attempts,
		Failures:        stats.failures,
		LastError:       stats.lastError,
		LastSuccess:     stats.lastSuccess,
		LastPollLatency: stats.lastPollLatency,
	}
}

// RecordHTTPRequest tracks basic HTTP serving metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// ensureStats must be called with r.mu held.
func (r *Recorder) ensureStats(source string) *sourceStats {
	stats, ok := r.stats[source]
	if !ok {
		stats = &sourceStats{}
		r.stats[source] = stats
	}
	return stats
}

func (r *Recorder) snapshot(source string) sourceStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stats, ok := r.stats[source]; ok && stats != nil {
		return *stats
	}
	return sourceStats{}
}
