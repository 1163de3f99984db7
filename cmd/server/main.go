package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"warehouse-api/internal/config"
	"warehouse-api/internal/db"
	"warehouse-api/internal/events"
	"warehouse-api/internal/logger"
	"warehouse-api/internal/metrics"
	"warehouse-api/internal/middleware"
	"warehouse-api/internal/observability"
	"warehouse-api/internal/order"
	"warehouse-api/internal/product"
	"warehouse-api/internal/transport"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	eventBuffer     = 1024
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = serve
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.L().Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	database := initDBFunc(cfg)
	defer database.Close()

	handler, cleanup := newServer(ctx, cfg, database)
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.L().Info("warehouse api listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
	return startServerFunc(ctx, srv)
}

// newServer wires repositories, services and the router. Redis and Kafka are
// used only when configured. cleanup flushes pending events and closes
// clients.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB) (http.Handler, func()) {
	var closers []func()

	var productRepo product.Repository = product.NewRepository(database)
	var productCache order.ProductCache

	if rdb := newRedis(ctx, cfg); rdb != nil {
		cached := product.NewCachedRepository(productRepo, rdb, cfg.CacheTTL)
		productRepo = cached
		productCache = cached
		closers = append(closers, func() { _ = rdb.Close() })
	}

	var publisher order.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ServiceName, eventBuffer)
		producer.Start()
		publisher = producer
		closers = append(closers, producer.Close)
		logger.L().Info("publishing order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	limiter := middleware.NewRateLimiter()
	go limiter.Run(ctx, time.Minute)

	productSvc := product.NewService(productRepo)
	orderSvc := order.NewService(order.NewRepository(database), productCache, publisher)

	router := transport.NewRouter(productSvc, orderSvc, transport.Options{
		JWTSecret:  []byte(cfg.JWTSecret),
		Limiter:    limiter,
		Metrics:    metrics.Default,
		TrustProxy: cfg.TrustProxy,
	})

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return router, cleanup
}

// newRedis returns nil when no address is configured or the server is
// unreachable at startup; the API then reads straight from Postgres.
func newRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		logger.L().Warn("redis unavailable, product cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = rdb.Close()
		return nil
	}

	logger.L().Info("product cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	return rdb
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.L().Info("shutting down server")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
