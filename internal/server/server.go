package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/preston-bernstein/flag-sync-service/internal/async"
	"github.com/preston-bernstein/flag-sync-service/internal/config"
	"github.com/preston-bernstein/flag-sync-service/internal/filedata"
	"github.com/preston-bernstein/flag-sync-service/internal/http/handlers"
	"github.com/preston-bernstein/flag-sync-service/internal/http/middleware"
	"github.com/preston-bernstein/flag-sync-service/internal/logging"
	"github.com/preston-bernstein/flag-sync-service/internal/metrics"
	"github.com/preston-bernstein/flag-sync-service/internal/poller"
	"github.com/preston-bernstein/flag-sync-service/internal/requestor"
	"github.com/preston-bernstein/flag-sync-service/internal/store"
)

var metricsSetup = metrics.Setup

type Server struct {
	cfg           config.Config
	logger        *slog.Logger
	metrics       *metrics.Recorder
	store         store.DataStore
	source        DataSource
	httpServer    httpServer
	metricsServer httpServer
	metricsStop   func(context.Context) error
}

// New wires the store, the configured data source, and the HTTP
// surface into a runnable server.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewLogger(logging.Config{})
	}

	recorder, metricsSrv, metricsStop := buildMetrics(cfg, logger)

	dataStore, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	source, err := buildDataSource(cfg, dataStore, logger, recorder)
	if err != nil {
		return nil, err
	}

	httpSrv := buildHTTPServer(cfg, dataStore, source, logger, recorder)

	return &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       recorder,
		store:         dataStore,
		source:        source,
		httpServer:    httpSrv,
		metricsServer: metricsSrv,
		metricsStop:   metricsStop,
	}, nil
}

// newServerWithDeps is used for testing to inject custom components.
func newServerWithDeps(cfg config.Config, logger *slog.Logger, dataStore store.DataStore, source DataSource, httpSrv httpServer) *Server {
	return &Server{
		cfg:        cfg,
		logger:     logger,
		store:      dataStore,
		source:     source,
		httpServer: httpSrv,
	}
}

func buildStore(cfg config.Config) (store.DataStore, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := store.OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case config.StoreMemory, "":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func buildDataSource(cfg config.Config, dataStore store.DataStore, logger *slog.Logger, recorder *metrics.Recorder) (DataSource, error) {
	switch cfg.DataSource {
	case config.DataSourceFile:
		if len(cfg.FileData.Paths) == 0 {
			return nil, fmt.Errorf("file data source requires at least one path")
		}
		return filedata.New(filedata.Config{
			Paths: cfg.FileData.Paths,
			Watch: cfg.FileData.Watch,
		}, dataStore, logger, recorder), nil
	case config.DataSourcePoll, "":
		client := requestor.NewClient(requestor.Config{
			BaseURL:         cfg.FlagService.BaseURL,
			SDKKey:          cfg.FlagService.SDKKey,
			RetryMaxElapsed: cfg.FlagService.RetryMaxElapsed,
		})
		return poller.New(client, dataStore, logger, recorder, cfg.PollInterval), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}

func buildHTTPServer(cfg config.Config, dataStore store.DataStore, source DataSource, logger *slog.Logger, recorder *metrics.Recorder) httpServer {
	var statusFn func() poller.Status
	if sp, ok := source.(interface{ Status() poller.Status }); ok {
		statusFn = sp.Status
	}

	handler := handlers.NewHandler(dataStore, logger, cfg.DataSource, statusFn)
	wrapped := middleware.LoggingMiddleware(logger, recorder, handler)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      wrapped,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return netHTTPServer{srv: srv}
}

func buildMetrics(cfg config.Config, logger *slog.Logger) (*metrics.Recorder, httpServer, func(context.Context) error) {
	recCfg := metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	}

	rec, handler, shutdown, err := metricsSetup(context.Background(), recCfg)
	if err != nil {
		logging.Warn(logger, "metrics setup failed, continuing without telemetry", "err", err)
		return metrics.NewRecorder(), nil, nil
	}

	var metricsSrv httpServer
	if handler != nil && recCfg.Enabled {
		metricsSrv = netHTTPServer{
			srv: &http.Server{
				Addr:    ":" + cfg.Metrics.Port,
				Handler: handler,
			},
		}
	}

	return rec, metricsSrv, shutdown
}

// Run starts the data source and HTTP server, then waits for context
// cancellation to shut down gracefully.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) {
	s.startMetrics()
	s.startServer(stop)
	s.startSource(ctx)

	<-ctx.Done()
	logging.Info(s.logger, "shutdown signal received")

	s.gracefulShutdown()
}

func (s *Server) startSource(ctx context.Context) {
	ready, err := s.source.Start(ctx)
	if err != nil {
		logging.Error(s.logger, "data source start failed", err)
		return
	}
	go s.logReadiness(ctx, ready)
}

// logReadiness reports when the first sync lands or permanently fails.
// Traffic readiness is surfaced via /ready; this is purely for operators.
func (s *Server) logReadiness(ctx context.Context, ready *async.Signal) {
	if err := ready.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.Error(s.logger, "data source permanently failed", err,
			slog.String(logging.FieldSource, s.cfg.DataSource),
		)
		return
	}
	logging.Info(s.logger, "data source initialized",
		slog.String(logging.FieldSource, s.cfg.DataSource),
	)
}

func (s *Server) startServer(stop context.CancelFunc) {
	launchServer("http", s.httpServer, s.logger, func(err error) {
		if stop != nil {
			stop()
		}
	})
}

func (s *Server) startMetrics() {
	if s.metricsServer == nil {
		return
	}
	launchServer("metrics", s.metricsServer, s.logger, nil)
}

func (s *Server) gracefulShutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics shutdown failed", "error", err)
		}
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics server shutdown failed", "error", err)
		}
	}

	if s.source != nil {
		if err := s.source.Close(); err != nil {
			logging.Error(s.logger, "failed to close data source", err)
		}
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(s.logger, "graceful shutdown failed", err)
	}

	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logging.Warn(s.logger, "store close failed", "error", err)
		}
	}

	logging.Info(s.logger, "shutdown complete")
}

func launchServer(name string, srv httpServer, logger *slog.Logger, onError func(error)) {
	go func() {
		logging.Info(logger, "starting "+name+" server", slog.String("addr", srv.Addr()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Warn(logger, name+" server failed", "error", err)
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// Handler exposes the HTTP handler (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler()
}
