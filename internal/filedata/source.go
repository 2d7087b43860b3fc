package filedata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/preston-bernstein/flag-sync-service/internal/async"
	"github.com/preston-bernstein/flag-sync-service/internal/logging"
	"github.com/preston-bernstein/flag-sync-service/internal/metrics"
	"github.com/preston-bernstein/flag-sync-service/internal/store"
)

// sourceName labels this data source in logs and metrics.
const sourceName = "file"

// debounceDelay coalesces bursts of filesystem events (editors often
// write + rename in quick succession) into one reload.
const debounceDelay = 50 * time.Millisecond

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("filedata: already started")

// Config controls the file data source.
type Config struct {
	// Paths are the flag data files, YAML or JSON. All files are merged
	// into one snapshot; a flag or segment key appearing in two files
	// is an error.
	Paths []string
	// Watch re-applies the files whenever one of them changes.
	Watch bool
}

// Source loads flag and segment data from local files instead of a
// remote service, for development and air-gapped deployments. It
// fulfils the same lifecycle as the polling processor: Start returns a
// completion signal that resolves once on first load, Initialized is a
// sticky query, Close is idempotent.
type Source struct {
	paths   []string
	watch   bool
	store   store.DataStore
	logger  *slog.Logger
	metrics *metrics.Recorder

	ready     *async.Signal
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	started bool
	closed  bool
	inited  bool
	watcher *fsnotify.Watcher
}

// New constructs a file data source.
func New(cfg Config, dataStore store.DataStore, logger *slog.Logger, recorder *metrics.Recorder) *Source {
	return &Source{
		paths:   cfg.Paths,
		watch:   cfg.Watch,
		store:   dataStore,
		logger:  logger,
		metrics: recorder,
		ready:   async.NewSignal(),
		done:    make(chan struct{}),
	}
}

// Start performs the first load on a background goroutine and returns
// the completion signal. A file that cannot be read or parsed before
// the first successful load resolves the signal as failed: a broken
// static file will not fix itself. After the first load, with Watch
// enabled, changes are re-applied and bad edits are only logged.
func (s *Source) Start(ctx context.Context) (*async.Signal, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	go s.run(ctx)
	return s.ready, nil
}

func (s *Source) run(ctx context.Context) {
	logging.Info(s.logger, "file data source started",
		slog.String(logging.FieldSource, sourceName),
		slog.Int("paths", len(s.paths)),
	)

	if err := s.applyFiles(); err != nil {
		logging.Error(s.logger, "file data load failed", err)
		s.ready.Resolve(err)
		return
	}

	s.mu.Lock()
	if !s.closed {
		s.ready.Resolve(nil)
		s.inited = true
	}
	s.mu.Unlock()

	if !s.watch {
		return
	}
	if err := s.watchFiles(ctx); err != nil {
		logging.Error(s.logger, "file watch failed", err)
	}
}

func (s *Source) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		watcher.Close()
		return nil
	}
	s.watcher = watcher
	s.mu.Unlock()

	// Watch each file's directory rather than the file itself so
	// atomic writes (temp file + rename) and recreations are seen.
	watched := make(map[string]bool)
	names := make(map[string]bool)
	for _, path := range s.paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		names[abs] = true
		dir := filepath.Dir(abs)
		if !watched[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %q: %w", dir, err)
			}
			watched[dir] = true
		}
	}

	var debounce *time.Timer
	var reloadCh <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !names[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
				reloadCh = debounce.C
			} else {
				debounce.Reset(debounceDelay)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn(s.logger, "file watch error", "error", err)
		case <-reloadCh:
			debounce = nil
			reloadCh = nil
			if err := s.applyFiles(); err != nil {
				// Keep serving the previous snapshot.
				logging.Warn(s.logger, "file data reload failed, keeping previous data", "error", err)
			} else {
				logging.Info(s.logger, "file data reloaded")
			}
		}
	}
}

// applyFiles parses every configured file and replaces the store's
// contents with the merged snapshot.
func (s *Source) applyFiles() error {
	start := time.Now()
	snapshot, err := loadFiles(s.paths)
	if s.metrics != nil {
		s.metrics.RecordSyncAttempt(sourceName, time.Since(start), err)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	return s.store.ReplaceAll(snapshot)
}

// Initialized reports whether the first load has succeeded. Sticky.
func (s *Source) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inited
}

// Close stops watching and releases the filesystem watcher. Idempotent.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		watcher := s.watcher
		s.mu.Unlock()
		close(s.done)
		if watcher != nil {
			if err := watcher.Close(); err != nil {
				logging.Error(s.logger, "file watcher close failed", err)
			}
		}
	})
	return nil
}
