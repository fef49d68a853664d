package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/promptlyprinted/forge/internal/config"
	"github.com/promptlyprinted/forge/internal/domain"
	"github.com/promptlyprinted/forge/internal/http"
	"github.com/promptlyprinted/forge/internal/http/middleware"
	"github.com/promptlyprinted/forge/internal/ledger/postgres"
	"github.com/promptlyprinted/forge/internal/metrics"
	"github.com/promptlyprinted/forge/internal/observability"
	"github.com/promptlyprinted/forge/internal/provider/stub"
	"github.com/promptlyprinted/forge/internal/provider/together"
	"github.com/promptlyprinted/forge/internal/quota/redisquota"
)

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *http.Server) {
		if err := server.Start(); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(metrics.New); err != nil {
		log.Fatalf("Failed to provide metrics: %v", err)
	}

	// Image provider: Together when configured, otherwise the offline stub.
	if err := container.Provide(func(cfg *together.Config, logger *zap.Logger) (domain.ImageProvider, error) {
		if cfg.APIKey == "" {
			logger.Warn("TOGETHER_API_KEY not set, using stub image provider")
			return stub.NewProvider(), nil
		}
		return together.NewProvider(*cfg)
	}); err != nil {
		log.Fatalf("Failed to provide image provider: %v", err)
	}

	// Credit ledger and generation records (PostgreSQL)
	if err := container.Provide(func(cfg *config.PostgresConfig) (*postgres.Store, error) {
		ctx := context.Background()
		store, err := postgres.NewStore(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
		return store, nil
	}); err != nil {
		log.Fatalf("Failed to provide postgres store: %v", err)
	}
	if err := container.Provide(func(store *postgres.Store) domain.CreditLedger {
		return postgres.NewLedger(store)
	}); err != nil {
		log.Fatalf("Failed to provide credit ledger: %v", err)
	}
	if err := container.Provide(func(store *postgres.Store) domain.GenerationRecorder {
		return postgres.NewRecorder(store)
	}); err != nil {
		log.Fatalf("Failed to provide generation recorder: %v", err)
	}

	// Guest quota (Redis)
	if err := container.Provide(func(cfg *config.RedisConfig) *redis.Client {
		return redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}); err != nil {
		log.Fatalf("Failed to provide redis client: %v", err)
	}
	if err := container.Provide(func(client *redis.Client, cfg *config.QuotaConfig) domain.GuestQuota {
		return redisquota.NewQuota(client, cfg.FreeLimit, time.Duration(cfg.WindowHours)*time.Hour)
	}); err != nil {
		log.Fatalf("Failed to provide guest quota: %v", err)
	}

	// Domain Services
	if err := container.Provide(func() domain.CostTable {
		return domain.NewStaticCostTable()
	}); err != nil {
		log.Fatalf("Failed to provide cost table: %v", err)
	}
	if err := container.Provide(domain.NewGatewayService); err != nil {
		log.Fatalf("Failed to provide gateway service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(http.NewCallerResolver); err != nil {
		log.Fatalf("Failed to provide caller resolver: %v", err)
	}
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}
