package config

import (
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type fileConfig struct {
	Port         string `toml:"port"`
	PollInterval string `toml:"poll_interval"`
	DataSource   string `toml:"data_source"`
	Store        string `toml:"store"`
	SQLitePath   string `toml:"sqlite_path"`

	FlagService struct {
		BaseURL         string `toml:"base_url"`
		SDKKey          string `toml:"sdk_key"`
		RetryMaxElapsed string `toml:"retry_max_elapsed"`
	} `toml:"flag_service"`

	FileData struct {
		Paths []string `toml:"paths"`
		Watch *bool    `toml:"watch"`
	} `toml:"file_data"`

	Metrics struct {
		Enabled      *bool  `toml:"enabled"`
		Port         string `toml:"port"`
		OtlpEndpoint string `toml:"otlp_endpoint"`
		ServiceName  string `toml:"service_name"`
		OtlpInsecure *bool  `toml:"otlp_insecure"`
	} `toml:"metrics"`
}

// applyFile layers values from a TOML file over cfg. A missing or
// unreadable file leaves cfg untouched so the service still starts on
// defaults and environment alone.
func applyFile(cfg Config, path string) Config {
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return cfg
	}

	cfg.Port = stringOr(fc.Port, cfg.Port)
	cfg.PollInterval = durationOr(fc.PollInterval, cfg.PollInterval)
	cfg.DataSource = stringOr(fc.DataSource, cfg.DataSource)
	cfg.Store = stringOr(fc.Store, cfg.Store)
	cfg.SQLitePath = stringOr(fc.SQLitePath, cfg.SQLitePath)

	cfg.FlagService.BaseURL = stringOr(fc.FlagService.BaseURL, cfg.FlagService.BaseURL)
	cfg.FlagService.SDKKey = stringOr(fc.FlagService.SDKKey, cfg.FlagService.SDKKey)
	cfg.FlagService.RetryMaxElapsed = durationOr(fc.FlagService.RetryMaxElapsed, cfg.FlagService.RetryMaxElapsed)

	if len(fc.FileData.Paths) > 0 {
		cfg.FileData.Paths = fc.FileData.Paths
	}
	if fc.FileData.Watch != nil {
		cfg.FileData.Watch = *fc.FileData.Watch
	}

	if fc.Metrics.Enabled != nil {
		cfg.Metrics.Enabled = *fc.Metrics.Enabled
	}
	cfg.Metrics.Port = stringOr(fc.Metrics.Port, cfg.Metrics.Port)
	cfg.Metrics.OtlpEndpoint = stringOr(fc.Metrics.OtlpEndpoint, cfg.Metrics.OtlpEndpoint)
	cfg.Metrics.ServiceName = stringOr(fc.Metrics.ServiceName, cfg.Metrics.ServiceName)
	if fc.Metrics.OtlpInsecure != nil {
		cfg.Metrics.OtlpInsecure = *fc.Metrics.OtlpInsecure
	}

	return cfg
}

func stringOr(val, fallback string) string {
	if trimmed := strings.TrimSpace(val); trimmed != "" {
		return trimmed
	}
	return fallback
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
