package storage

import (
	"fmt"

	"gatekeeper/internal/models"
)

// Factory provides a centralized way to create counter store instances
// based on configuration. This allows backend swapping without code
// changes at the call sites.
type Factory struct{}

// NewFactory creates a new counter store factory
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates a counter store based on the provided configuration.
// Supported backends:
//   - memory: in-process counters (single host, lost on restart)
//   - redis: shared counters with native per-key TTL (multi host)
//   - sqlite: single-host counters that survive restarts
//   - postgres: shared counters for database-only deployments
func (f *Factory) Create(config Config) (Store, error) {
	switch config.Type {
	case models.BackendMemory:
		return NewMemoryStore(config.SweepInterval), nil
	case models.BackendRedis:
		return NewRedisStore(config)
	case models.BackendSQLite:
		return NewSQLiteStore(config)
	case models.BackendPostgres:
		return NewPostgresStore(config)
	default:
		return nil, fmt.Errorf("unsupported counter store backend: %s", config.Type)
	}
}

// SupportedBackends returns a list of all supported backend types
func (f *Factory) SupportedBackends() []string {
	return []string{models.BackendMemory, models.BackendRedis, models.BackendSQLite, models.BackendPostgres}
}

// ValidateConfig validates that a store configuration is valid for its type
func (f *Factory) ValidateConfig(config Config) error {
	switch config.Type {
	case models.BackendMemory:
		// Memory storage requires no additional configuration
	case models.BackendRedis:
		if config.RedisAddr == "" {
			return fmt.Errorf("redis address is required for redis backend")
		}
	case models.BackendSQLite, models.BackendPostgres:
		if config.ConnectionString == "" {
			return fmt.Errorf("connection string is required for %s backend", config.Type)
		}
	default:
		return fmt.Errorf("unsupported counter store backend: %s", config.Type)
	}
	return nil
}
