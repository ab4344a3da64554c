// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Database DatabaseConfig `yaml:"database"`
	Sessions SessionConfig  `yaml:"sessions"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MonitorConfig configures the upstream monitor server.
type MonitorConfig struct {
	URL            string        `yaml:"url"`
	ControlTimeout time.Duration `yaml:"control_timeout"`
	TrafficTimeout time.Duration `yaml:"traffic_timeout"`
}

// GatewayConfig configures the payment gateway.
// Use "toss" for the real gateway or "dummy" for development.
type GatewayConfig struct {
	Mode      string `yaml:"mode"` // "toss" or "dummy"
	ClientKey string `yaml:"client_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// DatabaseConfig configures the order and balance store.
// Use "memory" for ephemeral storage or "sqlite" for a file-backed store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "memory" or "sqlite"
	DSN    string `yaml:"dsn"`
}

// SessionConfig configures session housekeeping.
type SessionConfig struct {
	SweepSchedule string `yaml:"sweep_schedule"` // cron expression
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// This is useful for Docker deployments where no config file is needed.
//
// Environment variables:
//
//	WAFCONSOLE_MONITOR_URL        - Monitor server URL (required)
//	WAFCONSOLE_SERVER_HOST        - Server host (default: 0.0.0.0)
//	WAFCONSOLE_SERVER_PORT        - Server port (default: 8080)
//	WAFCONSOLE_GATEWAY_MODE       - Payment gateway: toss or dummy (default: dummy)
//	WAFCONSOLE_GATEWAY_CLIENT_KEY - Gateway client key
//	WAFCONSOLE_GATEWAY_SECRET_KEY - Gateway secret key
//	WAFCONSOLE_DATABASE_DRIVER    - Store driver: memory or sqlite (default: memory)
//	WAFCONSOLE_DATABASE_DSN       - SQLite path (default: wafconsole.db)
//	WAFCONSOLE_LOG_LEVEL          - Log level (default: info)
//	WAFCONSOLE_LOG_FORMAT         - Log format: json or console (default: json)
//	WAFCONSOLE_METRICS_ENABLED    - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// HasEnvConfig reports whether enough environment variables are set to
// run without a config file.
func HasEnvConfig() bool {
	return os.Getenv("WAFCONSOLE_MONITOR_URL") != ""
}

// LoadWithFallback tries to load from file, falls back to environment
// variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if os.Getenv("WAFCONSOLE_MONITOR_URL") != "" {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set WAFCONSOLE_MONITOR_URL")
}

// applyEnvOverrides applies WAFCONSOLE_* environment variables.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WAFCONSOLE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("WAFCONSOLE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WAFCONSOLE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("WAFCONSOLE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	if v := os.Getenv("WAFCONSOLE_MONITOR_URL"); v != "" {
		cfg.Monitor.URL = v
	}
	if v := os.Getenv("WAFCONSOLE_MONITOR_CONTROL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.ControlTimeout = d
		}
	}
	if v := os.Getenv("WAFCONSOLE_MONITOR_TRAFFIC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Monitor.TrafficTimeout = d
		}
	}

	if v := os.Getenv("WAFCONSOLE_GATEWAY_MODE"); v != "" {
		cfg.Gateway.Mode = v
	}
	if v := os.Getenv("WAFCONSOLE_GATEWAY_CLIENT_KEY"); v != "" {
		cfg.Gateway.ClientKey = v
	}
	if v := os.Getenv("WAFCONSOLE_GATEWAY_SECRET_KEY"); v != "" {
		cfg.Gateway.SecretKey = v
	}
	if v := os.Getenv("WAFCONSOLE_GATEWAY_BASE_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}

	if v := os.Getenv("WAFCONSOLE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("WAFCONSOLE_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	if v := os.Getenv("WAFCONSOLE_SESSION_SWEEP_SCHEDULE"); v != "" {
		cfg.Sessions.SweepSchedule = v
	}

	if v := os.Getenv("WAFCONSOLE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WAFCONSOLE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("WAFCONSOLE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// The write timeout bounds ordinary responses; the event stream
		// endpoint disables it per-connection.
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Monitor.ControlTimeout == 0 {
		cfg.Monitor.ControlTimeout = 10 * time.Second
	}
	if cfg.Monitor.TrafficTimeout == 0 {
		cfg.Monitor.TrafficTimeout = 30 * time.Second
	}

	if cfg.Gateway.Mode == "" {
		cfg.Gateway.Mode = "dummy"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "memory"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "wafconsole.db"
	}

	if cfg.Sessions.SweepSchedule == "" {
		// Hourly sweep of expired sessions.
		cfg.Sessions.SweepSchedule = "0 * * * *"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	if cfg.Monitor.URL == "" {
		return fmt.Errorf("monitor.url is required")
	}

	validGateways := map[string]bool{"toss": true, "dummy": true}
	if !validGateways[cfg.Gateway.Mode] {
		return fmt.Errorf("gateway.mode must be 'toss' or 'dummy', got %q", cfg.Gateway.Mode)
	}
	if cfg.Gateway.Mode == "toss" && cfg.Gateway.SecretKey == "" {
		return fmt.Errorf("gateway.secret_key is required when gateway.mode is 'toss'")
	}

	validDrivers := map[string]bool{"memory": true, "sqlite": true}
	if !validDrivers[cfg.Database.Driver] {
		return fmt.Errorf("database.driver must be 'memory' or 'sqlite', got %q", cfg.Database.Driver)
	}

	return nil
}
