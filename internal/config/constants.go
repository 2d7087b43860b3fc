package config

import "time"

const (
	envConfigFile     = "CONFIG_FILE"
	envPort           = "PORT"
	envPollInterval   = "POLL_INTERVAL"
	envDataSource     = "DATA_SOURCE"
	envStore          = "STORE"
	envSQLitePath     = "SQLITE_PATH"
	envFlagServiceURL = "FLAG_SERVICE_URL"
	envSDKKey         = "SDK_KEY"
	envRetryMax       = "TRANSPORT_RETRY_MAX_ELAPSED"
	envFileDataPaths  = "FILE_DATA_PATHS"
	envFileDataWatch  = "FILE_DATA_WATCH"
	envMetricsPort    = "METRICS_PORT"
	envMetricsOn      = "METRICS_ENABLED"
	envOtelEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService    = "OTEL_SERVICE_NAME"
	envOtelInsecure   = "OTEL_EXPORTER_OTLP_INSECURE"

	// DataSourcePoll fetches the full snapshot from the flag service on
	// an interval; DataSourceFile serves local files.
	DataSourcePoll = "poll"
	DataSourceFile = "file"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	defaultPort = "4000"
	// Matches the flag service's default polling cadence.
	defaultPollInterval = 30 * Duration(time.Second)
	defaultDataSource   = DataSourcePoll
	defaultStore        = StoreMemory
	defaultSQLitePath   = "flag-sync.db"
	defaultMetricsPort  = "9090"
	defaultServiceName  = "flag-sync-service"
	// Transport-level retry budget for connection failures; zero would
	// disable socket retries entirely.
	defaultRetryMaxElapsed = 5 * Duration(time.Second)
)
