package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/models"
)

func TestFactory_CreateMemory(t *testing.T) {
	factory := NewFactory()

	store, err := factory.Create(Config{Type: models.BackendMemory})
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &MemoryStore{}, store)
}

func TestFactory_CreateUnsupported(t *testing.T) {
	factory := NewFactory()

	_, err := factory.Create(Config{Type: "etcd"})
	assert.Error(t, err)
}

func TestFactory_SupportedBackends(t *testing.T) {
	factory := NewFactory()

	backends := factory.SupportedBackends()
	assert.Contains(t, backends, models.BackendMemory)
	assert.Contains(t, backends, models.BackendRedis)
	assert.Contains(t, backends, models.BackendSQLite)
	assert.Contains(t, backends, models.BackendPostgres)
}

func TestFactory_ValidateConfig(t *testing.T) {
	factory := NewFactory()

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory needs nothing", Config{Type: models.BackendMemory}, false},
		{"redis needs addr", Config{Type: models.BackendRedis}, true},
		{"redis with addr", Config{Type: models.BackendRedis, RedisAddr: "localhost:6379"}, false},
		{"sqlite needs connection string", Config{Type: models.BackendSQLite}, true},
		{"sqlite with connection string", Config{Type: models.BackendSQLite, ConnectionString: "./counters.db"}, false},
		{"postgres needs connection string", Config{Type: models.BackendPostgres}, true},
		{"unknown backend", Config{Type: "etcd"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := factory.ValidateConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
