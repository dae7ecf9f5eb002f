package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration parsed from environment variables.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	DBConnString    string        `envconfig:"DB_DSN"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	RedisURL        string        `envconfig:"REDIS_URL"`
	CORSOrigins     []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	EphemeralMaxCarts int           `envconfig:"EPHEMERAL_MAX_CARTS" default:"10000"`
	EphemeralCartTTL  time.Duration `envconfig:"EPHEMERAL_CART_TTL" default:"24h"`
}

// FromEnv builds Config with defaults, overridden by environment variables.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.DBConnString = strings.TrimSpace(cfg.DBConnString)
	if cfg.EphemeralMaxCarts <= 0 {
		return Config{}, fmt.Errorf("EPHEMERAL_MAX_CARTS must be positive, got %d", cfg.EphemeralMaxCarts)
	}
	return cfg, nil
}

// Durable reports whether a relational store is configured.
func (c Config) Durable() bool {
	return c.DBConnString != ""
}
