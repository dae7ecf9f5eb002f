package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/logging"
	"storefront-cart/internal/migrate"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	var (
		down   int
		status bool
	)
	flag.IntVar(&down, "down", 0, "Roll back this many versions instead of migrating up")
	flag.BoolVar(&status, "status", false, "Print the current schema version and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New("storefront-cart-migrate", cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.Durable() {
		logger.Fatal("connect db", zap.Error(errors.New("DB_DSN is not set")))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	runner, err := migrate.Open(ctx, pool, logger)
	if err != nil {
		logger.Fatal("open migrations", zap.Error(err))
	}
	defer func() { _ = runner.Close() }()

	var schema migrate.Schema
	switch {
	case status:
		schema, err = runner.Status()
	case down > 0:
		schema, err = runner.Down(ctx, down)
	default:
		schema, err = runner.Up(ctx)
	}
	if err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	logger.Info("schema version",
		zap.Uint("version", schema.Version),
		zap.Bool("dirty", schema.Dirty),
		zap.String("table", migrate.Table),
	)
}
