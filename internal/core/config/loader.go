package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file. An empty path yields the
// defaults with environment overrides applied. Keys absent from the file keep
// their defaults, so an explicit zero (for example reconnect_attempts: 0) is
// honoured.
func Load(path string) (*AppConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cfg.Journal.Driver == "" {
		cfg.Journal.Driver = DriverMemory
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used for every key the file omits.
func Default() *AppConfig {
	return &AppConfig{
		Server:  ServerConfig{Port: 8080},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Daemon: DaemonConfig{
			Timeout:             30 * time.Second,
			ReconnectAttempts:   5,
			RetryDelay:          time.Second,
			MaxRetryDelay:       30 * time.Second,
			HealthCheckInterval: 30 * time.Second,
			BreakerThreshold:    3,
			BreakerTimeout:      60 * time.Second,
			InitialDelay:        2 * time.Second,
			OperationBackoff:    time.Second,
			StatsInterval:       5 * time.Minute,
		},
		Journal: JournalConfig{Driver: DriverMemory},
	}
}

// applyEnv lets DOCKER_SOCKET, then DOCKER_HOST, override the endpoint.
func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("DOCKER_HOST")); v != "" {
		cfg.Daemon.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("DOCKER_SOCKET")); v != "" {
		cfg.Daemon.Endpoint = v
	}
}

// Validate reports every invalid setting.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.level %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.format %q", c.Logging.Format))
	}

	d := c.Daemon
	for name, v := range map[string]time.Duration{
		"timeout":               d.Timeout,
		"retry_delay":           d.RetryDelay,
		"max_retry_delay":       d.MaxRetryDelay,
		"health_check_interval": d.HealthCheckInterval,
		"breaker_timeout":       d.BreakerTimeout,
		"operation_backoff":     d.OperationBackoff,
		"stats_interval":        d.StatsInterval,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("daemon.%s must be positive", name))
		}
	}
	if d.InitialDelay < 0 {
		errs = append(errs, errors.New("daemon.initial_delay must not be negative"))
	}
	if d.BreakerThreshold == 0 {
		errs = append(errs, errors.New("daemon.breaker_threshold must be at least 1"))
	}
	if d.MaxRetryDelay < d.RetryDelay {
		errs = append(errs, fmt.Errorf("daemon.max_retry_delay %s is below retry_delay %s", d.MaxRetryDelay, d.RetryDelay))
	}

	switch c.Journal.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Journal.Postgres.URL == "" {
			errs = append(errs, errors.New("journal.postgres.url is required for the postgres driver"))
		}
	case DriverRedis:
		if c.Journal.Redis.URL == "" {
			errs = append(errs, errors.New("journal.redis.url is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown journal.driver %q", c.Journal.Driver))
	}
	if c.Journal.Retention < 0 {
		errs = append(errs, errors.New("journal.retention must not be negative"))
	}

	return errors.Join(errs...)
}
