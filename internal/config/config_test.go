package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.PollInterval != defaultPollInterval {
		t.Fatalf("expected default poll interval %s, got %s", defaultPollInterval, cfg.PollInterval)
	}
	if cfg.DataSource != DataSourcePoll {
		t.Fatalf("expected default data source %s, got %s", DataSourcePoll, cfg.DataSource)
	}
	if cfg.Store != StoreMemory {
		t.Fatalf("expected default store %s, got %s", StoreMemory, cfg.Store)
	}
	if cfg.FlagService.SDKKey != "" {
		t.Fatalf("expected empty sdk key by default, got %s", cfg.FlagService.SDKKey)
	}
	if !cfg.Metrics.Enabled {
		t.Fatalf("expected metrics enabled by default")
	}
	if cfg.Metrics.Port != defaultMetricsPort {
		t.Fatalf("expected default metrics port %s, got %s", defaultMetricsPort, cfg.Metrics.Port)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(envPort, "5000")
	t.Setenv(envPollInterval, "45s")
	t.Setenv(envDataSource, DataSourceFile)
	t.Setenv(envStore, StoreSQLite)
	t.Setenv(envSQLitePath, "/tmp/flags.db")
	t.Setenv(envFlagServiceURL, "http://example.com/api")
	t.Setenv(envSDKKey, "secret-key")
	t.Setenv(envFileDataPaths, "a.yaml, b.yaml")
	t.Setenv(envFileDataWatch, "true")
	t.Setenv(envMetricsOn, "false")

	cfg := Load()

	if cfg.Port != "5000" {
		t.Fatalf("expected port 5000, got %s", cfg.Port)
	}
	if cfg.PollInterval != 45*time.Second {
		t.Fatalf("expected poll interval 45s, got %s", cfg.PollInterval)
	}
	if cfg.DataSource != DataSourceFile {
		t.Fatalf("expected data source override, got %s", cfg.DataSource)
	}
	if cfg.Store != StoreSQLite {
		t.Fatalf("expected store override, got %s", cfg.Store)
	}
	if cfg.SQLitePath != "/tmp/flags.db" {
		t.Fatalf("expected sqlite path override, got %s", cfg.SQLitePath)
	}
	if cfg.FlagService.BaseURL != "http://example.com/api" {
		t.Fatalf("expected base url override, got %s", cfg.FlagService.BaseURL)
	}
	if cfg.FlagService.SDKKey != "secret-key" {
		t.Fatalf("expected sdk key override, got %s", cfg.FlagService.SDKKey)
	}
	if len(cfg.FileData.Paths) != 2 || cfg.FileData.Paths[0] != "a.yaml" || cfg.FileData.Paths[1] != "b.yaml" {
		t.Fatalf("expected file data paths [a.yaml b.yaml], got %v", cfg.FileData.Paths)
	}
	if !cfg.FileData.Watch {
		t.Fatalf("expected file data watch enabled")
	}
	if cfg.Metrics.Enabled {
		t.Fatalf("expected metrics disabled")
	}
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	t.Setenv(envPollInterval, "not-a-duration")

	cfg := Load()

	if cfg.PollInterval != defaultPollInterval {
		t.Fatalf("expected default poll interval on invalid value, got %s", cfg.PollInterval)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
port = "6000"
poll_interval = "90s"
data_source = "file"

[flag_service]
base_url = "http://file.example.com"
sdk_key = "file-key"

[file_data]
paths = ["flags.yaml"]
watch = true

[metrics]
enabled = false
port = "9999"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(envConfigFile, path)

	cfg := Load()

	if cfg.Port != "6000" {
		t.Fatalf("expected port 6000 from file, got %s", cfg.Port)
	}
	if cfg.PollInterval != 90*time.Second {
		t.Fatalf("expected poll interval 90s from file, got %s", cfg.PollInterval)
	}
	if cfg.DataSource != DataSourceFile {
		t.Fatalf("expected data source file, got %s", cfg.DataSource)
	}
	if cfg.FlagService.BaseURL != "http://file.example.com" {
		t.Fatalf("expected base url from file, got %s", cfg.FlagService.BaseURL)
	}
	if cfg.FlagService.SDKKey != "file-key" {
		t.Fatalf("expected sdk key from file, got %s", cfg.FlagService.SDKKey)
	}
	if len(cfg.FileData.Paths) != 1 || cfg.FileData.Paths[0] != "flags.yaml" {
		t.Fatalf("expected file data paths from file, got %v", cfg.FileData.Paths)
	}
	if !cfg.FileData.Watch {
		t.Fatalf("expected watch enabled from file")
	}
	if cfg.Metrics.Enabled {
		t.Fatalf("expected metrics disabled from file")
	}
	if cfg.Metrics.Port != "9999" {
		t.Fatalf("expected metrics port from file, got %s", cfg.Metrics.Port)
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("port = \"6000\"\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(envConfigFile, path)
	t.Setenv(envPort, "7000")

	cfg := Load()

	if cfg.Port != "7000" {
		t.Fatalf("expected env to win over file, got %s", cfg.Port)
	}
}

func TestLoadMissingConfigFileIgnored(t *testing.T) {
	t.Setenv(envConfigFile, filepath.Join(t.TempDir(), "nope.toml"))

	cfg := Load()

	if cfg.Port != defaultPort {
		t.Fatalf("expected defaults when config file missing, got %s", cfg.Port)
	}
}
