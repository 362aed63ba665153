package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, env map[string]string) Config {
	t.Helper()

	var cfg Config
	err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(env),
	})
	require.NoError(t, err)
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := load(t, nil)

	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "http://localhost:8080", cfg.BaseURL)
	require.Equal(t, "./tmp", cfg.StoragePath)
	require.Equal(t, 168*time.Hour, cfg.RetentionWindow)
	require.Equal(t, time.Minute, cfg.SweepInterval)
	require.Equal(t, 30, cfg.SubmitRateLimit)
	require.Empty(t, cfg.DatabaseDSN)
	require.Empty(t, cfg.BrokerURL)
	require.Empty(t, cfg.S3.Bucket)
}

func TestConfigOverrides(t *testing.T) {
	cfg := load(t, map[string]string{
		"PRODISCO_ADDR":             ":9000",
		"PRODISCO_DB_DSN":           "postgres://localhost/prodisco",
		"PRODISCO_BROKER_URL":       "nats://localhost:4222",
		"PRODISCO_STORAGE_PATH":     "/srv/prodisco",
		"PRODISCO_RETENTION_WINDOW": "24h",
		"PRODISCO_SWEEP_INTERVAL":   "5s",
		"PRODISCO_ALLOWED_ORIGINS":  "http://a.example,http://b.example",
		"PRODISCO_S3_BUCKET":        "archives",
		"PRODISCO_S3_ENDPOINT":      "http://minio:9000",
	})

	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, "postgres://localhost/prodisco", cfg.DatabaseDSN)
	require.Equal(t, "nats://localhost:4222", cfg.BrokerURL)
	require.Equal(t, 24*time.Hour, cfg.RetentionWindow)
	require.Equal(t, 5*time.Second, cfg.SweepInterval)
	require.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
	require.Equal(t, "archives", cfg.S3.Bucket)
	require.Equal(t, "http://minio:9000", cfg.S3.Endpoint)
}

func TestConfigStoragePaths(t *testing.T) {
	cfg := load(t, map[string]string{"PRODISCO_STORAGE_PATH": "/srv/prodisco"})

	require.Equal(t, filepath.Join("/srv/prodisco", "files"), cfg.FilesPath())
	require.Equal(t, filepath.Join("/srv/prodisco", "discoveries"), cfg.DiscoveriesPath())
}
