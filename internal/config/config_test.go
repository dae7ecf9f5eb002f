package config

import (
	"os"
	"testing"
	"time"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	unsetEnv(t, "HTTP_ADDR", "DB_DSN", "EPHEMERAL_MAX_CARTS", "EPHEMERAL_CART_TTL")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr)
	}
	if cfg.Durable() {
		t.Fatalf("expected ephemeral mode without DB_DSN")
	}
	if cfg.EphemeralMaxCarts != 10000 || cfg.EphemeralCartTTL != 24*time.Hour {
		t.Fatalf("unexpected ephemeral settings %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "  postgres://u:p@localhost:5432/db  ")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	unsetEnv(t, "EPHEMERAL_MAX_CARTS", "EPHEMERAL_CART_TTL")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if !cfg.Durable() || cfg.DBConnString != "postgres://u:p@localhost:5432/db" {
		t.Fatalf("unexpected dsn %q", cfg.DBConnString)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("unexpected shutdown timeout %v", cfg.ShutdownTimeout)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
}

func TestFromEnvRejectsNonPositiveCapacity(t *testing.T) {
	t.Setenv("EPHEMERAL_MAX_CARTS", "0")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for zero capacity")
	}
}
