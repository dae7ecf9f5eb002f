package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/importer"
	"storefront-cart/internal/logging"
	"storefront-cart/internal/repository/product"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to catalog product CSV")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New("storefront-cart-importer", cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.Durable() {
		logger.Fatal("connect db", zap.Error(errors.New("DB_DSN is not set")))
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, product.NewPostgres(pool, logger), logger)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Int("imported", count), zap.Error(err))
	}

	fmt.Printf("Imported %d products in %s\n", count, time.Since(start).Truncate(time.Millisecond))
}
