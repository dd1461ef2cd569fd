// Package models - service configuration and operational settings.
// This file defines the configuration structures for all service components.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping (server, limiter, logging, metrics)
// - Environment-friendly defaults that work out of the box
// - Comprehensive validation to catch misconfigurations early
// - Support for multiple deployment scenarios (single host, fleet behind Redis/Postgres)
package models

import (
	"fmt"
	"time"
)

// Counter store backend constants
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is the root configuration structure containing all service settings.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`               // HTTP server configuration
	Limiter       LimiterConfig       `yaml:"limiter" json:"limiter"`             // Counter store and admission control
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`             // Logging and output configuration
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`             // Monitoring and metrics
	Observability ObservabilityConfig `yaml:"observability" json:"observability"` // Tracing and service identity
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
}

// LimiterConfig selects and configures the counter store backend. Backend
// defaults to memory; setting a Redis address (via config file or the
// GATEKEEPER_REDIS_ADDR environment variable) switches the service to the
// shared Redis store unless an explicit backend overrides it.
type LimiterConfig struct {
	Backend       string         `yaml:"backend" json:"backend"`
	SweepInterval time.Duration  `yaml:"sweep_interval" json:"sweep_interval"`
	StoreTimeout  time.Duration  `yaml:"store_timeout" json:"store_timeout"`
	Redis         RedisConfig    `yaml:"redis" json:"redis"`
	Database      DatabaseConfig `yaml:"database" json:"database"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" json:"dsn"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with production-ready defaults.
//
// Default Values Rationale:
// - Port 8080: standard non-privileged HTTP port
// - 30-second timeouts: balance between user experience and resource protection
// - Memory backend: correct on a single host without external dependencies
// - 5-minute sweep: bounds memory from abandoned keys without churn
// - 500ms store timeout: a slow backend triggers fail-open instead of
//   stalling the request path
// - Structured JSON logging: better for log aggregation and analysis
// - Metrics enabled: admission decisions are the service's main signal
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			TLSEnabled:   false,
		},
		Limiter: LimiterConfig{
			Backend:       BackendMemory,
			SweepInterval: 5 * time.Minute,
			StoreTimeout:  500 * time.Millisecond,
			Redis: RedisConfig{
				DB:       0,
				PoolSize: 10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "gatekeeper",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Limiter.Validate(); err != nil {
		return fmt.Errorf("invalid limiter config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", sc.Port)
	}

	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" || sc.TLSKeyFile == "" {
			return fmt.Errorf("tls_cert_file and tls_key_file are required when TLS is enabled")
		}
	}

	return nil
}

func (lc *LimiterConfig) Validate() error {
	switch lc.Backend {
	case BackendMemory:
	case BackendRedis:
		if lc.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
	case BackendSQLite, BackendPostgres:
		if lc.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for the %s backend", lc.Backend)
		}
	default:
		return fmt.Errorf("unsupported backend: %s", lc.Backend)
	}

	if lc.SweepInterval < 0 {
		return fmt.Errorf("sweep_interval must not be negative")
	}

	if lc.StoreTimeout < 0 {
		return fmt.Errorf("store_timeout must not be negative")
	}

	return nil
}

func (lc *LoggingConfig) Validate() error {
	switch lc.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", lc.Level)
	}

	switch lc.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %s", lc.Format)
	}

	switch lc.Output {
	case "stdout", "stderr":
	case "file":
		if lc.FilePath == "" {
			return fmt.Errorf("file_path is required when output is file")
		}
	default:
		return fmt.Errorf("unsupported log output: %s", lc.Output)
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return fmt.Errorf("metrics port must be between 1 and 65535, got %d", mc.Port)
	}

	if mc.Path == "" {
		return fmt.Errorf("metrics path is required when metrics are enabled")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if oc.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}

	if oc.Tracing.Enabled {
		switch oc.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			return fmt.Errorf("unsupported trace exporter: %s", oc.Tracing.Exporter)
		}
		if oc.Tracing.Exporter == "otlp" && oc.Tracing.OTLPEndpoint == "" {
			return fmt.Errorf("otlp_endpoint is required for the otlp trace exporter")
		}
	}

	return nil
}
