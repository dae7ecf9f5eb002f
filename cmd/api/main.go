package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/httpserver"
	"storefront-cart/internal/logging"
	"storefront-cart/internal/metrics"
	"storefront-cart/internal/migrate"
	"storefront-cart/internal/notify"
	cartrepo "storefront-cart/internal/repository/cart"
	productrepo "storefront-cart/internal/repository/product"
	"storefront-cart/internal/seed"
	cartsvc "storefront-cart/internal/service/cart"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New("storefront-cart", cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		store   cartrepo.Store
		catalog productrepo.Repository
		dbpool  *pgxpool.Pool
	)
	if cfg.Durable() {
		pool, err := db.Connect(ctx, cfg.DBConnString, logger.Named("db"))
		if err != nil {
			return err
		}
		defer pool.Close()
		schema, err := migrate.ApplyWithLogger(ctx, pool, logger)
		if err != nil {
			return err
		}
		logger.Info("schema ready", zap.Uint("version", schema.Version))
		dbpool = pool
		store = cartrepo.NewPostgres(pool, logger)
		catalog = productrepo.NewPostgres(pool, logger)
		logger.Info("using durable cart store")
	} else {
		store = cartrepo.NewMemory(cfg.EphemeralMaxCarts, cfg.EphemeralCartTTL)
		demo := seed.DemoProducts()
		catalog = productrepo.NewMemory(demo...)
		logger.Info("using ephemeral cart store",
			zap.Int("max_carts", cfg.EphemeralMaxCarts),
			zap.Duration("cart_ttl", cfg.EphemeralCartTTL),
		)
		for _, p := range demo {
			logger.Info("demo product available",
				zap.String("product_id", p.ID),
				zap.String("sku", p.SKU),
				zap.Int("stock", p.StockQuantity),
				zap.Bool("track_quantity", p.TrackQuantity),
			)
		}
	}

	notifier := notify.NewLog(logger)
	if cfg.RedisURL != "" {
		client, err := notify.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		notifier = notify.NewRedis(client, logger)
		logger.Info("publishing cart events to redis", zap.String("channel", notify.Channel))
	}

	cartService := cartsvc.New(store, catalog,
		cartsvc.WithNotifier(notifier),
		cartsvc.WithMetrics(metrics.NewCart(reg)),
		cartsvc.WithLogger(logger),
	)

	deps := httpserver.Deps{
		CartSvc:     cartService,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTP(reg),
		CORSOrigins: cfg.CORSOrigins,
	}
	if dbpool != nil {
		deps.DB = dbpool
	}
	srv, err := httpserver.New(cfg.HTTPAddr, logger, deps)
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return nil
	}
	logger.Info("server stopped")
	return nil
}
