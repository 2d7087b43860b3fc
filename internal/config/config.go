package config

// Config holds runtime configuration for the service.
type Config struct {
	Port         string
	PollInterval Duration
	DataSource   string
	Store        string
	SQLitePath   string
	FlagService  FlagServiceConfig
	FileData     FileDataConfig
	Metrics      MetricsConfig
}

// FlagServiceConfig controls how the poll data source reaches the
// remote flag service.
type FlagServiceConfig struct {
	BaseURL         string
	SDKKey          string
	RetryMaxElapsed Duration
}

// FileDataConfig controls the file data source.
type FileDataConfig struct {
	Paths []string
	Watch bool
}

// Load reads configuration with this precedence: built-in defaults,
// then the optional TOML file named by CONFIG_FILE, then environment
// variables.
func Load() Config {
	cfg := defaults()
	if path := envOrDefault(envConfigFile, ""); path != "" {
		cfg = applyFile(cfg, path)
	}
	return applyEnv(cfg)
}

func defaults() Config {
	return Config{
		Port:         defaultPort,
		PollInterval: defaultPollInterval,
		DataSource:   defaultDataSource,
		Store:        defaultStore,
		SQLitePath:   defaultSQLitePath,
		FlagService: FlagServiceConfig{
			RetryMaxElapsed: defaultRetryMaxElapsed,
		},
		Metrics: MetricsConfig{
			Enabled:      true,
			Port:         defaultMetricsPort,
			ServiceName:  defaultServiceName,
			OtlpInsecure: true,
		},
	}
}

func applyEnv(cfg Config) Config {
	cfg.Port = envOrDefault(envPort, cfg.Port)
	cfg.PollInterval = durationEnvOrDefault(envPollInterval, cfg.PollInterval)
	cfg.DataSource = envOrDefault(envDataSource, cfg.DataSource)
	cfg.Store = envOrDefault(envStore, cfg.Store)
	cfg.SQLitePath = envOrDefault(envSQLitePath, cfg.SQLitePath)

	cfg.FlagService.BaseURL = envOrDefault(envFlagServiceURL, cfg.FlagService.BaseURL)
	cfg.FlagService.SDKKey = envOrDefault(envSDKKey, cfg.FlagService.SDKKey)
	cfg.FlagService.RetryMaxElapsed = durationEnvOrDefault(envRetryMax, cfg.FlagService.RetryMaxElapsed)

	cfg.FileData.Paths = listEnvOrDefault(envFileDataPaths, cfg.FileData.Paths)
	cfg.FileData.Watch = boolEnvOrDefault(envFileDataWatch, cfg.FileData.Watch)

	cfg.Metrics = applyMetricsEnv(cfg.Metrics)
	return cfg
}
