package config

import (
	"fmt"
	"github.com/ZertGraf/userboard/internal/pkg/postgres"
	"github.com/ilyakaznacheev/cleanenv"
	"os"
	"time"
)

const (
	RetryModeReload = "reload"
	RetryModeScoped = "scoped"

	SnapshotStoreMemory   = "memory"
	SnapshotStorePostgres = "postgres"
)

type Config struct {
	// application settings
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	ServiceName string `env:"SERVICE_NAME" env-default:"userboard"`

	// logging configuration
	LogLevel     string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat    string `env:"LOG_FORMAT" env-default:"text"`
	LogAddSource bool   `env:"LOG_ADD_SOURCE" env-default:"false"`

	// upstream users api
	UpstreamURL       string        `env:"UPSTREAM_URL" env-default:"https://jsonplaceholder.typicode.com/users"`
	UpstreamTimeout   time.Duration `env:"UPSTREAM_TIMEOUT" env-default:"15s"`
	UpstreamUserAgent string        `env:"UPSTREAM_USER_AGENT" env-default:"userboard/0.1"`

	// page rendering
	UIMountID        string        `env:"UI_MOUNT_ID" env-default:"root"`
	UIRetryMode      string        `env:"UI_RETRY_MODE" env-default:"reload"`
	UILoadingRefresh time.Duration `env:"UI_LOADING_REFRESH" env-default:"1s"`

	// snapshot archive: memory or postgres
	SnapshotStore string `env:"SNAPSHOT_STORE" env-default:"memory"`

	// database connection settings, only used by the postgres snapshot store
	DatabaseHost     string `env:"DATABASE_HOST" env-default:"localhost"`
	DatabasePort     int    `env:"DATABASE_PORT" env-default:"5432"`
	DatabaseUser     string `env:"DATABASE_USER" env-default:"postgres"`
	DatabasePassword string `env:"DATABASE_PASSWORD"`
	DatabaseName     string `env:"DATABASE_NAME" env-default:"postgres"`
	DatabaseSchema   string `env:"DATABASE_SCHEMA" env-default:"public"`
	DatabaseSSLMode  string `env:"DATABASE_SSL_MODE" env-default:"require"`

	// database connection pool settings
	DatabaseMaxConns          int32         `env:"DATABASE_MAX_CONNS" env-default:"5"`
	DatabaseMinConns          int32         `env:"DATABASE_MIN_CONNS" env-default:"1"`
	DatabaseMaxConnLifetime   time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" env-default:"1h"`
	DatabaseMaxConnIdleTime   time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	DatabaseHealthCheckPeriod time.Duration `env:"DATABASE_HEALTH_CHECK_PERIOD" env-default:"1m"`
	DatabaseConnectTimeout    time.Duration `env:"DATABASE_CONNECT_TIMEOUT" env-default:"30s"`
	DatabaseAcquireTimeout    time.Duration `env:"DATABASE_ACQUIRE_TIMEOUT" env-default:"10s"`

	// database migrations settings
	DatabaseMigrationEnabled bool          `env:"DATABASE_MIGRATION_ENABLED" env-default:"true"`
	DatabaseMigrationTimeout time.Duration `env:"DATABASE_MIGRATION_TIMEOUT" env-default:"5m"`
	DatabaseMigrationTable   string        `env:"DATABASE_MIGRATION_TABLE" env-default:"schema_version"`

	// http server configuration
	ServerHost         string        `env:"SERVER_HOST" env-default:"0.0.0.0"`
	ServerPort         int           `env:"SERVER_PORT" env-default:"8080"`
	ServerReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
	ServerIdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

func New() (*Config, error) {
	var cfg Config

	// read from .env file if exists (optional)
	if err := cleanenv.ReadConfig(".env", &cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read dotenv file: %w", err)
	}

	// read from environment variables (required)
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) ScopedRetry() bool {
	return c.UIRetryMode == RetryModeScoped
}

// Postgres returns the connection settings of the postgres snapshot store.
func (c *Config) Postgres() *postgres.Config {
	return &postgres.Config{
		Host:              c.DatabaseHost,
		Port:              c.DatabasePort,
		Username:          c.DatabaseUser,
		Password:          c.DatabasePassword,
		Database:          c.DatabaseName,
		Schema:            c.DatabaseSchema,
		SSLMode:           c.DatabaseSSLMode,
		MaxConns:          c.DatabaseMaxConns,
		MinConns:          c.DatabaseMinConns,
		MaxConnLifetime:   c.DatabaseMaxConnLifetime,
		MaxConnIdleTime:   c.DatabaseMaxConnIdleTime,
		HealthCheckPeriod: c.DatabaseHealthCheckPeriod,
		ConnectTimeout:    c.DatabaseConnectTimeout,
		AcquireTimeout:    c.DatabaseAcquireTimeout,
	}
}
