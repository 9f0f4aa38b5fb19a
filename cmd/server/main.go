// Command server runs the posture assessment HTTP service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudsentry/posture/internal/application/service"
	"github.com/cloudsentry/posture/internal/config"
	domainsvc "github.com/cloudsentry/posture/internal/domain/service"
	"github.com/cloudsentry/posture/internal/infrastructure/audit"
	"github.com/cloudsentry/posture/internal/infrastructure/cache"
	"github.com/cloudsentry/posture/internal/infrastructure/graph"
	"github.com/cloudsentry/posture/internal/infrastructure/monitoring"
	"github.com/cloudsentry/posture/internal/infrastructure/persistence/gateway"
	"github.com/cloudsentry/posture/internal/infrastructure/secrets"
	"github.com/cloudsentry/posture/internal/interfaces/http/handlers"
	"github.com/cloudsentry/posture/internal/interfaces/http/router"
	"github.com/cloudsentry/posture/pkg/logger"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx := context.Background()
	log.Info(ctx, "Starting posture assessment service", logger.String("version", version))

	shutdownTracing, err := monitoring.InitTracing(&cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn(flushCtx, "Failed to flush traces", logger.Err(err))
		}
	}()

	runtime := config.NewRuntime(cfg)
	runtime.Watch(v, func() {
		log.Info(context.Background(), "Configuration reloaded",
			logger.Bool("cache_bypass", runtime.CacheBypass()),
			logger.String("log_level", runtime.LogLevel()),
		)
	})

	// The store gateway initializes lazily on the first request that needs
	// it; startup does not block on database availability.
	store := gateway.NewStoreGateway(&cfg.Database, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "Failed to close store gateway", logger.Err(err))
		}
	}()

	customerRepo := gateway.NewCustomerRepository(store, log)
	assessmentRepo := gateway.NewAssessmentRepository(store, log)

	directory := graph.NewClient(&cfg.Graph, log)

	var respCache cache.ResponseCache
	if cfg.Redis.Enabled {
		redisCache := cache.NewRedisCache(&cfg.Redis, log)
		defer redisCache.Close()
		respCache = redisCache
	} else {
		respCache = cache.NewMemoryCache(cfg.Cache.TTLDuration())
	}

	var secretStore domainsvc.SecretStore
	if cfg.Vault.Enabled {
		secretStore, err = secrets.NewVaultStore(&cfg.Vault, log)
		if err != nil {
			return fmt.Errorf("init vault: %w", err)
		}
	} else {
		log.Warn(ctx, "Vault disabled; using in-memory secret store")
		secretStore = secrets.NewMemoryStore()
	}

	auditPublisher := audit.NewKafkaPublisher(&cfg.Kafka, log)
	defer func() {
		if err := auditPublisher.Close(); err != nil {
			log.Warn(ctx, "Failed to close audit publisher", logger.Err(err))
		}
	}()

	metrics := monitoring.NewMetrics()

	assessmentService := service.NewAssessmentService(
		customerRepo, assessmentRepo, store, directory, secretStore,
		auditPublisher, respCache, metrics, runtime, log, cfg.Cache.TTLDuration(),
	)
	customerService := service.NewCustomerService(
		customerRepo, store, secretStore, respCache, runtime, log, cfg.Cache.TTLDuration(),
	)

	r := router.New(
		cfg, log,
		handlers.NewHealthHandler(store, version),
		handlers.NewAssessmentHandler(assessmentService, log),
		handlers.NewCustomerHandler(customerService, log),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info(ctx, "Shutdown signal received", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info(ctx, "Service stopped")
	return nil
}
