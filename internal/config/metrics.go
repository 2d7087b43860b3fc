package config

// MetricsConfig controls telemetry export settings.
type MetricsConfig struct {
	Enabled      bool
	Port         string
	OtlpEndpoint string
	ServiceName  string
	OtlpInsecure bool
}

func applyMetricsEnv(m MetricsConfig) MetricsConfig {
	m.Enabled = boolEnvOrDefault(envMetricsOn, m.Enabled)
	m.Port = envOrDefault(envMetricsPort, m.Port)
	m.OtlpEndpoint = envOrDefault(envOtelEndpoint, m.OtlpEndpoint)
	m.ServiceName = envOrDefault(envOtelService, m.ServiceName)
	m.OtlpInsecure = boolEnvOrDefault(envOtelInsecure, m.OtlpInsecure)
	return m
}
