package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorypulse/mempulse-go/pkg/core"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		storage core.StorageConfig
		wantErr bool
	}{
		{"sqlite ok", core.StorageConfig{Provider: "sqlite", DBPath: "./test.db"}, false},
		{"sqlite missing path", core.StorageConfig{Provider: "sqlite"}, true},
		{"postgres ok", core.StorageConfig{Provider: "postgres", Host: "localhost", User: "pg", Database: "db"}, false},
		{"postgres missing host", core.StorageConfig{Provider: "postgres", User: "pg", Database: "db"}, true},
		{"mysql ok", core.StorageConfig{Provider: "mysql", Host: "localhost", User: "root", Database: "db"}, false},
		{"mysql missing database", core.StorageConfig{Provider: "mysql", Host: "localhost", User: "root"}, true},
		{"empty provider", core.StorageConfig{}, true},
		{"unknown provider", core.StorageConfig{Provider: "mongodb"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &core.Config{Storage: tc.storage}
			err := cfg.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("MEMORY_STORAGE", "")
	t.Setenv("MEMORY_DB_PATH", "")
	t.Setenv("CACHE_ENABLED", "")
	t.Setenv("CACHE_SIZE", "")
	t.Setenv("AUTO_RELATION_ENABLED", "")
	t.Setenv("AUTO_RELATION_THRESHOLD", "")
	t.Setenv("EMBEDDING_PROVIDER", "")

	cfg, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Provider)
	assert.Equal(t, "./mempulse.db", cfg.Storage.DBPath)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 100, cfg.Cache.Size)
	assert.True(t, cfg.AutoRelation.Enabled)
	assert.InDelta(t, 0.3, cfg.AutoRelation.Threshold, 0.0001)
	assert.Empty(t, cfg.Embedder.Provider)
}

func TestLoadConfigFromEnvPostgres(t *testing.T) {
	t.Setenv("MEMORY_STORAGE", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_USER", "svc")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DATABASE", "memories")
	t.Setenv("POSTGRES_SSLMODE", "require")

	cfg, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Provider)
	assert.Equal(t, "db.internal", cfg.Storage.Host)
	assert.Equal(t, 5433, cfg.Storage.Port)
	assert.Equal(t, "svc", cfg.Storage.User)
	assert.Equal(t, "secret", cfg.Storage.Password)
	assert.Equal(t, "memories", cfg.Storage.Database)
	assert.Equal(t, "require", cfg.Storage.SSLMode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"storage": {"provider": "sqlite", "db_path": "./data.db"},
		"embedder": {"provider": "mock", "dimensions": 16},
		"cache": {"enabled": true, "size": 50},
		"auto_relation": {"enabled": true, "threshold": 0.5}
	}`), 0o600))

	cfg, err := core.LoadConfigFromJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Provider)
	assert.Equal(t, "./data.db", cfg.Storage.DBPath)
	assert.Equal(t, "mock", cfg.Embedder.Provider)
	assert.Equal(t, 16, cfg.Embedder.Dimensions)
	assert.Equal(t, 50, cfg.Cache.Size)
	assert.InDelta(t, 0.5, cfg.AutoRelation.Threshold, 0.0001)
}

func TestLoadConfigFromJSONMissingFile(t *testing.T) {
	_, err := core.LoadConfigFromJSON(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
