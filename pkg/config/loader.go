// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from the environment-selected YAML file and
// environment variables, validates it, and returns the resulting Config
// together with the viper instance for change watching.
func Load() (*Config, *viper.Viper, error) {
	// Missing env files are fine; container deployments inject real
	// environment variables instead.
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// Watch re-reads the config file on change and hands the re-validated
// result to onChange. Invalid edits are logged and skipped, keeping the
// previous configuration live.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		cfg, err := unmarshal(v)
		if err != nil {
			log.Warn("ignoring config change",
				slog.String("file", event.Name),
				slog.Any("error", err),
			)
			return
		}

		log.Info("configuration reloaded", slog.String("file", event.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.api_base_url", "https://api.telegram.org")
	v.SetDefault("bot.request_timeout", "35s")
	v.SetDefault("bot.attempts", 3)
	v.SetDefault("bot.command_prefix", "/")
	v.SetDefault("bot.poll_limit", 100)
	v.SetDefault("bot.poll_timeout", "30s")
	v.SetDefault("bot.rate_limit", 20)
	v.SetDefault("bot.rate_window", "1m")
	v.SetDefault("bot.history_depth", 50)
	v.SetDefault("bot.session_ttl", "1h")
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
}
