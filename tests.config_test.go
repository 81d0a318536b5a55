package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config := &Config{Server: ServerConfig{Host: "localhost", Port: "8080", RateLimit: 5}}
		require.NoError(t, InitConfig(config, "abc123", "v1.0.0", "2023-07-02"))
		assert.Equal(t, "abc123", config.GitCommit)
		assert.Equal(t, "v1.0.0", config.GitTag)
		assert.Equal(t, "2023-07-02", config.BuildTime)
		assert.Equal(t, 30*time.Second, config.Server.RequestTimeout)
		assert.Equal(t, 10*time.Second, config.Server.ShutdownTimeout)
		assert.Equal(t, 6, config.Server.RateBurst)
		assert.Equal(t, "./logs", config.LogFolder)
		assert.Equal(t, "https://www.googleapis.com/books/v1", config.Catalog.BaseURL)
		assert.Equal(t, 20, config.Catalog.MaxResults)
		assert.Equal(t, "bkex_session", config.Sessions.CookieName)
		assert.Equal(t, time.Hour, config.Sessions.TTL)
		assert.Equal(t, MirrorNone, config.Favorites.Mirror)
		assert.Equal(t, QueueMemory, config.Favorites.Queue)
		assert.Equal(t, 256, config.Favorites.QueueSize)
		assert.False(t, config.UsesRedis())
	})

	t.Run("bolt mirror defaults", func(t *testing.T) {
		config := &Config{
			Server:    ServerConfig{Host: "localhost", Port: "8080"},
			Favorites: FavoritesConfig{Mirror: MirrorBolt},
			BoltDB:    BoltDBConfig{FilePath: "./data/favorites.db"},
		}
		require.NoError(t, InitConfig(config, "", "", ""))
		assert.Equal(t, "favorites", config.BoltDB.BucketName)
		assert.Equal(t, 5*time.Second, config.BoltDB.Timeout)
	})

	testCases := []struct {
		name   string
		config *Config
	}{
		{
			"missing server address",
			&Config{},
		},
		{
			"too many results",
			&Config{Server: ServerConfig{Host: "localhost", Port: "8080"}, Catalog: CatalogConfig{MaxResults: 41}},
		},
		{
			"unknown mirror",
			&Config{Server: ServerConfig{Host: "localhost", Port: "8080"}, Favorites: FavoritesConfig{Mirror: "postgres"}},
		},
		{
			"unknown queue",
			&Config{Server: ServerConfig{Host: "localhost", Port: "8080"}, Favorites: FavoritesConfig{Queue: "kafka"}},
		},
		{
			"redis mirror without address",
			&Config{Server: ServerConfig{Host: "localhost", Port: "8080"}, Favorites: FavoritesConfig{Mirror: MirrorRedis}},
		},
		{
			"bolt mirror without file",
			&Config{Server: ServerConfig{Host: "localhost", Port: "8080"}, Favorites: FavoritesConfig{Mirror: MirrorBolt}},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, InitConfig(tc.config, "", "", ""))
		})
	}
}

func TestLoadAndInitConfigs(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yml")
	yml := `
log_level: debug
server:
  host: 0.0.0.0
  port: "9090"
  request_timeout: 5s
catalog:
  max_results: 10
favorites:
  mirror: bolt
boltdb:
  filepath: ` + filepath.Join(dir, "favorites.db") + `
`
	require.NoError(t, os.WriteFile(configFile, []byte(yml), 0o600))

	t.Run("missing env file is ignored", func(t *testing.T) {
		config, err := LoadAndInitConfigs(configFile, filepath.Join(dir, "missing.env"), "", "", "")
		require.NoError(t, err)
		assert.Equal(t, zapcore.DebugLevel, config.LogLevel)
		assert.Equal(t, "9090", config.Server.Port)
		assert.Equal(t, 5*time.Second, config.Server.RequestTimeout)
		assert.Equal(t, 10, config.Catalog.MaxResults)
		assert.Equal(t, MirrorBolt, config.Favorites.Mirror)
		assert.Equal(t, "favorites", config.BoltDB.BucketName)
	})

	t.Run("env file overrides the yaml file", func(t *testing.T) {
		envFile := filepath.Join(dir, "config.env")
		require.NoError(t, os.WriteFile(envFile, []byte("BKEX_CATALOG_MAX_RESULTS=30\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("BKEX_CATALOG_MAX_RESULTS") })
		config, err := LoadAndInitConfigs(configFile, envFile, "", "", "")
		require.NoError(t, err)
		assert.Equal(t, 30, config.Catalog.MaxResults)
	})

	t.Run("environment overrides the yaml file", func(t *testing.T) {
		t.Setenv("BKEX_SERVER_PORT", "7070")
		t.Setenv("BKEX_CATALOG_API_KEY", "secret")
		config, err := LoadAndInitConfigs(configFile, "", "", "", "")
		require.NoError(t, err)
		assert.Equal(t, "7070", config.Server.Port)
		assert.Equal(t, "secret", config.Catalog.APIKey)
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := LoadAndInitConfigs(filepath.Join(dir, "missing.yml"), "", "", "", "")
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Setenv("BKEX_FAVORITES_MIRROR", "postgres")
		_, err := LoadAndInitConfigs(configFile, "", "", "", "")
		assert.Error(t, err)
	})
}
