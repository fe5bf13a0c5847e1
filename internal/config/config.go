// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and ARENA_ env vars.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RedisURL enables the Redis-backed waiting pool when set.
	RedisURL      string `koanf:"redis_url"`
	RedisQueueKey string `koanf:"redis_queue_key"`

	// PostgresDSN enables the gorm match repository when set.
	PostgresDSN     string `koanf:"postgres_dsn"`
	PostgresVerbose bool   `koanf:"postgres_verbose"`
	AutoMigrate     bool   `koanf:"auto_migrate"`

	// IdentityURL is the base URL of the identity service.
	IdentityURL string `koanf:"identity_url"`
	// GameURL delegates match creation to a remote game service when set.
	GameURL         string `koanf:"game_url"`
	ClientTimeoutMS int    `koanf:"client_timeout_ms"`
	ClientRetries   int    `koanf:"client_retries"`

	// JWTSecret enables bearer authentication on player routes when set.
	JWTSecret string `koanf:"jwt_secret"`

	MatchmakingIntervalMS  int `koanf:"matchmaking_interval_ms"`
	MatchmakingMaxAttempts int `koanf:"matchmaking_max_attempts"`

	NotifyBufferSize int `koanf:"notify_buffer_size"`

	// MaxHP is the starting hit points of both players.
	MaxHP int `koanf:"max_hp"`

	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":8080",
		RedisQueueKey:          "queue:waiting",
		AutoMigrate:            true,
		IdentityURL:            "http://localhost:8092",
		ClientTimeoutMS:        3000,
		ClientRetries:          2,
		MatchmakingIntervalMS:  5000,
		MatchmakingMaxAttempts: 10,
		NotifyBufferSize:       16,
		MaxHP:                  100,
		ShutdownTimeoutMS:      10000,
	}
}

// MatchmakingInterval returns the scheduler period.
func (c *Config) MatchmakingInterval() time.Duration {
	return time.Duration(c.MatchmakingIntervalMS) * time.Millisecond
}

// ClientTimeout returns the outbound HTTP timeout.
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.ClientTimeoutMS) * time.Millisecond
}

// ShutdownTimeout bounds graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}
