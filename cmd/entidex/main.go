package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entidex/internal/config"
	"github.com/kailas-cloud/entidex/internal/db"
	dbRedis "github.com/kailas-cloud/entidex/internal/db/redis"
	dbSQLite "github.com/kailas-cloud/entidex/internal/db/sqlite"
	logpkg "github.com/kailas-cloud/entidex/internal/logger"
	"github.com/kailas-cloud/entidex/internal/metrics"
	"github.com/kailas-cloud/entidex/internal/observe"
	"github.com/kailas-cloud/entidex/internal/query"
	entityrepo "github.com/kailas-cloud/entidex/internal/repository/entity"
	indexrepo "github.com/kailas-cloud/entidex/internal/repository/index"
	chiTransport "github.com/kailas-cloud/entidex/internal/transport/chi"
	batchuc "github.com/kailas-cloud/entidex/internal/usecase/batch"
	entityuc "github.com/kailas-cloud/entidex/internal/usecase/entity"
	healthuc "github.com/kailas-cloud/entidex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/entidex/internal/usecase/search"
	"github.com/kailas-cloud/entidex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting entidex API server",
		zap.String("build", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Int("entity_kinds", len(cfg.Entities)),
	)

	registry, err := cfg.Registry()
	if err != nil {
		logger.Fatal("Invalid entity configuration", zap.Error(err))
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg.Database, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database", zap.String("dialect", store.Dialect().Name()))

	// Metrics registry: runtime collectors plus everything the services emit.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics, err := metrics.NewHTTP(reg)
	if err != nil {
		logger.Fatal("Failed to register HTTP metrics", zap.Error(err))
	}
	promObserver, err := observe.NewPrometheus(reg)
	if err != nil {
		logger.Fatal("Failed to register observer metrics", zap.Error(err))
	}
	obs := observe.Multi{observe.NewZap(logger), promObserver}

	// Repositories
	entities := entityrepo.New(store, cfg.Storage.EntityContainer)
	index := indexrepo.New(store, cfg.Storage.IndexContainer, cfg.Search.FieldPrefix)

	// Use case services
	bulkSvc := batchuc.New(entities, index, registry).
		WithMaxBatchSize(cfg.Bulk.MaxBatchSize).
		WithConcurrency(cfg.Bulk.Concurrency).
		WithObserver(obs)
	searchSvc := searchuc.New(index, entities, registry, query.NewCompiler(store.Dialect(), cfg.Search.FieldPrefix)).
		WithCacheSize(cfg.Search.CompileCacheSize).
		WithDefaultPageSize(cfg.Search.DefaultPageSize).
		WithObserver(obs)
	entitySvc := entityuc.New(entities, bulkSvc, registry, entities, index).
		WithPagination(cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)

	indexNames := make([]string, 0, 2*len(registry.Kinds()))
	for _, kind := range registry.Kinds() {
		indexNames = append(indexNames,
			db.IndexName(cfg.Storage.EntityContainer, kind),
			db.IndexName(cfg.Storage.IndexContainer, kind))
	}
	healthSvc := healthuc.New(store).WithIndexes(store, indexNames...)

	server := chiTransport.NewServer(entitySvc, searchSvc, healthSvc, logger).
		WithDefaultKind(cfg.HTTP.DefaultKind).
		WithMaxPageSize(cfg.Search.MaxPageSize)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:        cfg.Auth.APIKeys,
		Metrics:        httpMetrics.Middleware(),
		MetricsHandler: metrics.Handler(reg),
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore creates the database store for the configured driver.
func openStore(ctx context.Context, dbc config.DatabaseConfig, sc config.StorageConfig) (db.Store, error) {
	switch dbc.Driver {
	case config.DriverSQLite:
		s, err := dbSQLite.NewStore(ctx, dbSQLite.Config{Path: dbc.Path})
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return s, nil
	case config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     dbc.Addrs,
			Password:  dbc.Password,
			KeyPrefix: sc.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", dbc.Driver)
	}
}
