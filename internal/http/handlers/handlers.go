package handlers

import (
	"log/slog"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/preston-bernstein/flag-sync-service/internal/domain"
	"github.com/preston-bernstein/flag-sync-service/internal/logging"
	"github.com/preston-bernstein/flag-sync-service/internal/poller"
	"github.com/preston-bernstein/flag-sync-service/internal/store"
)

// Handler wires HTTP routes to the data store and the active data source.
type Handler struct {
	store    store.DataStore
	logger   *slog.Logger
	source   string
	statusFn func() poller.Status
}

// NewHandler constructs a Handler. statusFn may be nil when the active
// data source does not report detailed status; readiness then falls
// back to store initialization alone.
func NewHandler(dataStore store.DataStore, logger *slog.Logger, source string, statusFn func() poller.Status) *Handler {
	return &Handler{
		store:    dataStore,
		logger:   logger,
		source:   source,
		statusFn: statusFn,
	}
}

func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	switch {
	case r.URL.Path == "/health":
		h.Health(w, r)
	case r.URL.Path == "/ready":
		h.Ready(w, r)
	case r.URL.Path == "/status":
		h.Status(w, r)
	case r.URL.Path == "/sdk/flags":
		h.AllFlags(w, r)
	case strings.HasPrefix(r.URL.Path, "/sdk/flags/"):
		h.FlagByKey(w, r)
	case r.URL.Path == "/sdk/segments":
		h.AllSegments(w, r)
	case strings.HasPrefix(r.URL.Path, "/sdk/segments/"):
		h.SegmentByKey(w, r)
	default:
		writeError(w, r, nethttp.StatusNotFound, "not found", h.logger)
	}
}

func (h *Handler) Health(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireGet(w, r, h.logger) {
		return
	}
	if err := r.Context().Err(); err != nil {
		writeError(w, r, nethttp.StatusServiceUnavailable, "shutting down", h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

// Ready reports readiness for traffic (e.g., for Kubernetes probes).
// The service is ready once the store holds a complete snapshot.
func (h *Handler) Ready(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireGet(w, r, h.logger) {
		return
	}
	if h.store != nil && h.store.IsInitialized() {
		writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ready"}, h.logger)
		return
	}
	msg := "not ready"
	if h.statusFn != nil {
		if last := h.statusFn().LastError; last != "" {
			msg = last
		}
	}
	writeError(w, r, nethttp.StatusServiceUnavailable, msg, h.logger)
}

// statusResponse is the wire shape of the /status document.
type statusResponse struct {
	Source              string `json:"source"`
	State               string `json:"state,omitempty"`
	Initialized         bool   `json:"initialized"`
	FlagCount           int    `json:"flagCount"`
	SegmentCount        int    `json:"segmentCount"`
	ConsecutiveFailures int    `json:"consecutiveFailures,omitempty"`
	LastError           string `json:"lastError,omitempty"`
	LastAttempt         string `json:"lastAttempt,omitempty"`
	LastSuccess         string `json:"lastSuccess,omitempty"`
}

// Status reports the active data source's sync health alongside store counts.
func (h *Handler) Status(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireGet(w, r, h.logger) {
		return
	}

	resp := statusResponse{Source: h.source}
	if h.store != nil {
		resp.Initialized = h.store.IsInitialized()
		resp.FlagCount = len(h.store.AllFlags())
		resp.SegmentCount = len(h.store.AllSegments())
	}
	if h.statusFn != nil {
		st := h.statusFn()
		resp.State = st.State.String()
		resp.ConsecutiveFailures = st.ConsecutiveFailures
		resp.LastError = st.LastError
		if !st.LastAttempt.IsZero() {
			resp.LastAttempt = st.LastAttempt.UTC().Format(timeLayout)
		}
		if !st.LastSuccess.IsZero() {
			resp.LastSuccess = st.LastSuccess.UTC().Format(timeLayout)
		}
	}
	writeJSON(w, nethttp.StatusOK, resp, h.logger)
}

// AllFlags returns every live flag keyed by flag key. Tombstones for
// deleted flags are retained in the store but never served.
func (h *Handler) AllFlags(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireGet(w, r, h.logger) {
		return
	}
	flags := make(map[string]domain.Flag)
	for key, flag := range h.store.AllFlags() {
		if flag.Deleted {
			continue
		}
		flags[key] = flag
	}
	logging.Info(loggerFromContext(r, h.logger), "served flags",
		slog.Int(logging.FieldFlagCount, len(flags)),
	)
	writeJSON(w, nethttp.StatusOK, flags, h.logger)
}

// FlagByKey returns a single flag if present and not deleted.
func (h *Handler) FlagByKey(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireGet(w, r, h.logger) {
		return
	}
	key, ok := keyFromPath(r.URL.Path, "/sdk/flags/")
	if !ok {
		writeError(w, r, nethttp.StatusBadRequest, "invalid flag key", h.logger)
		return
	}
	flag, found := h.store.Flag(key)
	if !found || flag.Deleted {
		writeError(w, r, nethttp.StatusNotFound, "flag not found", h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, flag, h.logger)
}

// AllSegments returns every live segment keyed by segment key.
func (h *Handler) AllSegments(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireGet(w, r, h.logger) {
		return
	}
	segments := make(map[string]domain.Segment)
	for key, segment := range h.store.AllSegments() {
		if segment.Deleted {
			continue
		}
		segments[key] = segment
	}
	logging.Info(loggerFromContext(r, h.logger), "served segments",
		slog.Int(logging.FieldSegCount, len(segments)),
	)
	writeJSON(w, nethttp.StatusOK, segments, h.logger)
}

// SegmentByKey returns a single segment if present and not deleted.
func (h *Handler) SegmentByKey(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !requireGet(w, r, h.logger) {
		return
	}
	key, ok := keyFromPath(r.URL.Path, "/sdk/segments/")
	if !ok {
		writeError(w, r, nethttp.StatusBadRequest, "invalid segment key", h.logger)
		return
	}
	segment, found := h.store.Segment(key)
	if !found || segment.Deleted {
		writeError(w, r, nethttp.StatusNotFound, "segment not found", h.logger)
		return
	}
	writeJSON(w, nethttp.StatusOK, segment, h.logger)
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func keyFromPath(path, prefix string) (string, bool) {
	raw := strings.TrimPrefix(path, prefix)
	key, err := url.PathUnescape(raw)
	if err != nil || key == "" || strings.ContainsAny(key, " \t/") {
		return "", false
	}
	return key, true
}

func requireGet(w nethttp.ResponseWriter, r *nethttp.Request, logger *slog.Logger) bool {
	if r.Method != nethttp.MethodGet {
		writeError(w, r, nethttp.StatusMethodNotAllowed, "method not allowed", logger)
		return false
	}
	return true
}
