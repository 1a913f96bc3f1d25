package config

import (
	"fmt"
	"time"

	"github.com/Proton-105/hermes-bot/pkg/logger"
	"github.com/Proton-105/hermes-bot/pkg/redis"
)

// Config holds runtime configuration for the Hermes bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Bot      BotConfig      `mapstructure:"bot" validate:"required"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      logger.Config  `mapstructure:"log"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// BotConfig configures the Bot API client and the polling loop.
type BotConfig struct {
	Token          string        `mapstructure:"token" validate:"required"`
	APIBaseURL     string        `mapstructure:"api_base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Attempts       int           `mapstructure:"attempts"`
	CommandPrefix  string        `mapstructure:"command_prefix"`
	PollLimit      int           `mapstructure:"poll_limit"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
	RateLimit      int           `mapstructure:"rate_limit"`
	RateWindow     time.Duration `mapstructure:"rate_window"`
	HistoryDepth   int           `mapstructure:"history_depth"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	LogoPath       string        `mapstructure:"logo_path"`
}

// ServerConfig configures the HTTP sidecar serving health and metrics.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Enabled true"`
}

// RedisConfig gates the shared Redis connection; when disabled the
// application falls back to in-memory storage everywhere.
type RedisConfig struct {
	Enabled bool         `mapstructure:"enabled"`
	Client  redis.Config `mapstructure:"client"`
}

// PostgresConfig configures the user directory database.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required_if=Enabled true"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// DSN returns the PostgreSQL connection string.
func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslMode,
	)
}
