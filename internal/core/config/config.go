package config

import (
	"time"

	redisclient "github.com/smashingtags/homelabarr-containers/internal/infra/redis"
	"github.com/smashingtags/homelabarr-containers/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Journal JournalConfig `yaml:"journal"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// DaemonConfig holds the Docker connection and resilience settings.
type DaemonConfig struct {
	Endpoint            string        `yaml:"endpoint"` // unix:///path, npipe:////./pipe/name or a bare path
	APIVersion          string        `yaml:"api_version"`
	Timeout             time.Duration `yaml:"timeout"`
	ReconnectAttempts   uint          `yaml:"reconnect_attempts"`
	RetryDelay          time.Duration `yaml:"retry_delay"`
	MaxRetryDelay       time.Duration `yaml:"max_retry_delay"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	BreakerThreshold    uint          `yaml:"breaker_threshold"`
	BreakerTimeout      time.Duration `yaml:"breaker_timeout"`
	InitialDelay        time.Duration `yaml:"initial_delay"`
	OperationBackoff    time.Duration `yaml:"operation_backoff"`
	StatsInterval       time.Duration `yaml:"stats_interval"`
}

// JournalConfig selects where connection events are kept.
type JournalConfig struct {
	Driver    string             `yaml:"driver"` // memory, postgres, redis
	QueueSize int                `yaml:"queue_size"`
	Capacity  int                `yaml:"capacity"`  // memory driver only
	Retention time.Duration      `yaml:"retention"` // postgres driver only, 0 = keep forever
	Postgres  postgres.Config    `yaml:"postgres"`
	Redis     redisclient.Config `yaml:"redis"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)
