package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/opendata-nc/registre/pkg/api"
	"github.com/opendata-nc/registre/pkg/config"
	"github.com/opendata-nc/registre/pkg/maintenance"
	"github.com/opendata-nc/registre/pkg/migrations"
	"github.com/opendata-nc/registre/pkg/observability"
	"github.com/opendata-nc/registre/pkg/search"
	"github.com/opendata-nc/registre/pkg/storage"
	"github.com/opendata-nc/registre/pkg/storage/postgres"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "registre: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName).
		WithField("version", version)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.WithError(err).Error("registre stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	otelCfg := cfg.Observability.OTel()
	otelCfg.ServiceVersion = version
	providers, err := observability.InitOTel(ctx, otelCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	cm, err := postgres.NewConnectionManager(cfg.Storage.ConnectionConfig(), logger)
	if err != nil {
		return startupFailure(err, nil, providers, logger)
	}
	cm.StartHealthCheckRoutine(ctx, 30*time.Second)

	if cfg.Search.RunMigrations {
		applied, err := migrations.NewRunner(cm.Primary(), logger).Up(ctx)
		if err != nil {
			return startupFailure(fmt.Errorf("failed to apply migrations: %w", err), cm, providers, logger)
		}
		logger.WithField("applied", applied).Info("Database schema up to date")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	redisClient := connectRedis(ctx, cfg.Storage, logger)

	opts := []search.Option{
		search.WithReplicas(cm.Replica),
		search.WithMetrics(metrics),
	}
	if cache := newSearchCache(cfg.Storage, redisClient); cache != nil {
		opts = append(opts, search.WithCache(cache))
	}
	if cfg.Search.HistoryEnabled {
		opts = append(opts, search.WithHistory(cfg.Search.HistoryTimeout))
	}
	service := search.NewService(cm.Primary(), opts...)

	apiServer := api.NewServer(service, logger,
		api.WithMetrics(metrics),
		api.WithRequestTimeout(cfg.Server.WriteTimeout),
	)
	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           newHealthMux(cfg, cm, redisClient, registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	scheduler, err := newScheduler(cfg, cm, metrics, logger)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return startupFailure(err, cm, providers, logger)
	}
	scheduler.Start()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, healthServer)
	shutdown.RegisterShutdownFunc(scheduler.Stop)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		// Pending history writes need the primary
		drained := make(chan struct{})
		go func() {
			service.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			logger.Warn("Closing database with search history writes pending")
		}
		cancel()
		return cm.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })
	}
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(httpServer, "api", logger) })
	g.Go(func() error { return serve(healthServer, "health", logger) })
	g.Go(func() error { return shutdown.WaitForShutdown(gctx) })

	return g.Wait()
}

// startupFailure releases what run opened before err and returns err
func startupFailure(err error, cm *postgres.ConnectionManager, providers *observability.OTelProviders, logger *observability.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cm != nil {
		if closeErr := cm.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("Failed to close database connections")
		}
	}
	if shutdownErr := observability.ShutdownOTel(ctx, providers, logger); shutdownErr != nil {
		logger.WithError(shutdownErr).Warn("Failed to flush OpenTelemetry")
	}
	return err
}

// newHealthMux serves the probes and, when enabled, /metrics. Readiness
// covers the primary pool, the replicas and Redis.
func newHealthMux(cfg *config.Config, cm *postgres.ConnectionManager, redisClient *redis.Client, registry *prometheus.Registry) *http.ServeMux {
	checker := observability.NewHealthChecker(cm.Primary(), redisClient, version).
		AddCheck("database_cluster", cm.HealthCheck)

	mux := http.NewServeMux()
	observability.RegisterHealthRoutes(mux, checker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(mux, registry)
	}
	return mux
}

func serve(server *http.Server, name string, logger *observability.Logger) error {
	logger.WithFields(map[string]interface{}{
		"server": name,
		"addr":   server.Addr,
	}).Info("Starting HTTP server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

// connectRedis returns nil when Redis is not configured or unreachable,
// searches then only use the in-process cache
func connectRedis(ctx context.Context, cfg storage.Config, logger *observability.Logger) *redis.Client {
	client, err := storage.NewRedisClient(ctx, cfg)
	switch {
	case errors.Is(err, storage.ErrRedisDisabled):
		return nil
	case err != nil:
		logger.WithError(err).Warn("Redis unavailable, continuing with the memory cache only")
		return nil
	}
	return client
}

func newSearchCache(cfg storage.Config, redisClient *redis.Client) search.Cache {
	if !cfg.CacheEnabled {
		return nil
	}

	memory := search.NewLRUCache(cfg.L1CacheSize, cfg.CacheTTL)
	if redisClient == nil {
		return memory
	}
	return search.NewTieredCache(memory, search.NewRedisCache(redisClient, cfg.CacheTTL, cfg.CachePrefix))
}

func newScheduler(cfg *config.Config, cm *postgres.ConnectionManager, metrics *observability.Metrics, logger *observability.Logger) (*maintenance.Scheduler, error) {
	scheduler := maintenance.NewScheduler(logger)

	if cfg.Search.HistoryEnabled {
		err := scheduler.Add("prune search history", cfg.Search.PruneSchedule, &maintenance.PruneJob{
			DB:        cm.Primary(),
			Retention: cfg.Search.HistoryRetention,
			Metrics:   metrics,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
	}

	if cfg.Observability.MetricsEnabled {
		err := scheduler.Add("database pool stats", cfg.Search.StatsSchedule, &maintenance.StatsJob{
			Stats:   func() sql.DBStats { return cm.Stats().Total() },
			Metrics: metrics,
		})
		if err != nil {
			return nil, err
		}
	}

	return scheduler, nil
}
