package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*RuntimeAPIConfig, error) {
	v := viper.New()

	d := DefaultRuntimeAPIConfig()
	v.SetDefault("runtime_api.host", d.Host)
	v.SetDefault("runtime_api.port", d.Port)
	v.SetDefault("runtime_api.root_class", d.RootClass)
	v.SetDefault("runtime_api.max_sessions", d.MaxSessions)
	v.SetDefault("runtime_api.session_ttl", d.SessionTTL.String())
	v.SetDefault("runtime_api.request_timeout", d.RequestTimeout.String())
	v.SetDefault("runtime_api.data_dir", d.DataDir)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)

	// DT_RUNTIME_API_PORT, DT_TRACING_ENABLED, ...
	v.SetEnvPrefix("DT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &RuntimeAPIConfig{
		Host:           v.GetString("runtime_api.host"),
		Port:           v.GetInt("runtime_api.port"),
		RootClass:      v.GetString("runtime_api.root_class"),
		MaxSessions:    v.GetInt("runtime_api.max_sessions"),
		SessionTTL:     v.GetDuration("runtime_api.session_ttl"),
		RequestTimeout: v.GetDuration("runtime_api.request_timeout"),
		DataDir:        v.GetString("runtime_api.data_dir"),
		Tracing: TracingConfig{
			Enabled:      v.GetBool("tracing.enabled"),
			Exporter:     v.GetString("tracing.exporter"),
			OTLPEndpoint: v.GetString("tracing.otlp_endpoint"),
			SampleRate:   v.GetFloat64("tracing.sample_rate"),
			ServiceName:  v.GetString("tracing.service_name"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive limits.
func validateConfig(cfg *RuntimeAPIConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.RootClass == "" {
		return fmt.Errorf("root_class cannot be empty")
	}
	if cfg.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive, got %d", cfg.MaxSessions)
	}
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %v", cfg.SessionTTL)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within [0, 1], got %v", cfg.Tracing.SampleRate)
	}
	switch cfg.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("unsupported tracing exporter: %s", cfg.Tracing.Exporter)
	}
	return nil
}

// validateNoSecretsInConfig keeps HMAC secrets environment-only.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("hmac_secret") || v.IsSet("runtime_api.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use DT_HMAC_SECRET environment variable)")
	}
	return nil
}
