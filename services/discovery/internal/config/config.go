package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// S3 configures optional archive offload to object storage. Leaving the
// bucket empty keeps archives on local disk.
type S3 struct {
	Endpoint       string `env:"ENDPOINT"`
	AccessKey      string `env:"ACCESS_KEY"`
	SecretKey      string `env:"SECRET_KEY"`
	Region         string `env:"REGION, default=us-east-1"`
	Bucket         string `env:"BUCKET"`
	DisableTLS     bool   `env:"DISABLE_TLS, default=false"`
	ForcePathStyle bool   `env:"FORCE_PATH_STYLE, default=true"`
}

// Config is the discovery service's environment-driven configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"PRODISCO_ADDR, default=:8080"`
	// BaseURL is the externally reachable prefix for archive downloads.
	BaseURL string `env:"PRODISCO_BASE_URL, default=http://localhost:8080"`

	// DatabaseDSN selects the Postgres instance. Empty falls back to the
	// in-memory repository, for local runs without infrastructure.
	DatabaseDSN string `env:"PRODISCO_DB_DSN"`

	// BrokerURL selects the NATS server. Empty disables dispatch and report
	// consumption; submissions then fail over to the failed state.
	BrokerURL string `env:"PRODISCO_BROKER_URL"`

	// StoragePath roots the file pool and per-discovery output directories.
	StoragePath string `env:"PRODISCO_STORAGE_PATH, default=./tmp"`

	// RetentionWindow is how long settled discoveries keep their results
	// before the sweeper expires them.
	RetentionWindow time.Duration `env:"PRODISCO_RETENTION_WINDOW, default=168h"`
	// SweepInterval is the pause between sweeper passes.
	SweepInterval time.Duration `env:"PRODISCO_SWEEP_INTERVAL, default=60s"`

	// SubmitRateLimit caps submissions per client IP per minute.
	SubmitRateLimit int `env:"PRODISCO_SUBMIT_RATE_LIMIT, default=30"`
	// AllowedOrigins enables CORS for the listed origins.
	AllowedOrigins []string `env:"PRODISCO_ALLOWED_ORIGINS"`

	// OTELEndpoint enables trace export when set, e.g. "localhost:4318".
	OTELEndpoint string `env:"PRODISCO_OTEL_ENDPOINT"`

	// ArchiveURLTTL bounds presigned S3 archive URLs.
	ArchiveURLTTL time.Duration `env:"PRODISCO_ARCHIVE_URL_TTL, default=168h"`

	S3 S3 `env:", prefix=PRODISCO_S3_"`
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FilesPath is where submitted inputs are pooled.
func (c Config) FilesPath() string {
	return filepath.Join(c.StoragePath, "files")
}

// DiscoveriesPath is where per-discovery output directories live.
func (c Config) DiscoveriesPath() string {
	return filepath.Join(c.StoragePath, "discoveries")
}
