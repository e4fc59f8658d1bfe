// Package config loads banshogate's process settings from the environment,
// per spec §6's env var table plus the ambient logging/metrics/tracing
// variables SPEC_FULL.md adds.
package config

// Settings is the fully resolved process configuration.
type Settings struct {
	ListenHost string `mapstructure:"bansho_listen_host" validate:"required"`
	ListenPort int    `mapstructure:"bansho_listen_port" validate:"required,min=1,max=65535"`

	DashboardHost string `mapstructure:"dashboard_host" validate:"required"`
	DashboardPort int    `mapstructure:"dashboard_port" validate:"required,min=1,max=65535"`

	UpstreamTransport string `mapstructure:"upstream_transport" validate:"required,oneof=stdio http"`
	UpstreamCmd       string `mapstructure:"upstream_cmd"`
	UpstreamURL       string `mapstructure:"upstream_url" validate:"omitempty,url"`

	PostgresDSN string `mapstructure:"postgres_dsn"`
	RedisURL    string `mapstructure:"redis_url"`

	PolicyPath string `mapstructure:"bansho_policy_path" validate:"required"`

	LogLevel  string `mapstructure:"bansho_log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"bansho_log_format" validate:"required,oneof=json text"`

	MetricsAddr string `mapstructure:"metrics_addr" validate:"required"`

	OTelTracesExporter string `mapstructure:"otel_traces_exporter" validate:"required,oneof=stdout none"`
}

// SetDefaults applies spec §3/§6's defaults to fields left unset.
func (s *Settings) SetDefaults() {
	if s.ListenHost == "" {
		s.ListenHost = "0.0.0.0"
	}
	if s.ListenPort == 0 {
		s.ListenPort = 8765
	}
	if s.DashboardHost == "" {
		s.DashboardHost = "127.0.0.1"
	}
	if s.DashboardPort == 0 {
		s.DashboardPort = 8766
	}
	if s.UpstreamTransport == "" {
		s.UpstreamTransport = "stdio"
	}
	if s.PolicyPath == "" {
		s.PolicyPath = "config/policies.yaml"
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.LogFormat == "" {
		s.LogFormat = "json"
	}
	if s.MetricsAddr == "" {
		s.MetricsAddr = "127.0.0.1:9090"
	}
	if s.OTelTracesExporter == "" {
		s.OTelTracesExporter = "none"
	}
}

// Validate checks that upstream transport requirements (spec §6) are met:
// stdio requires a non-empty command, http requires a non-empty URL.
func (s *Settings) Validate() error {
	switch s.UpstreamTransport {
	case "stdio":
		if s.UpstreamCmd == "" {
			return errFatalConfig("UPSTREAM_CMD must not be empty when UPSTREAM_TRANSPORT=stdio")
		}
	case "http":
		if s.UpstreamURL == "" {
			return errFatalConfig("UPSTREAM_URL must not be empty when UPSTREAM_TRANSPORT=http")
		}
	}
	return nil
}
