// Package app wires the service dependencies and owns the process
// lifecycle: HTTP server, event consumer and graceful shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shoplite/catalog-search/internal/analytics"
	analyticsredis "github.com/shoplite/catalog-search/internal/analytics/redis"
	cacheredis "github.com/shoplite/catalog-search/internal/cache/redis"
	"github.com/shoplite/catalog-search/internal/client"
	"github.com/shoplite/catalog-search/internal/config"
	"github.com/shoplite/catalog-search/internal/event"
	handlerhttp "github.com/shoplite/catalog-search/internal/handler/http"
	"github.com/shoplite/catalog-search/internal/repository/postgres"
	"github.com/shoplite/catalog-search/internal/service"
	"github.com/shoplite/catalog-search/pkg/database"
	"github.com/shoplite/catalog-search/pkg/health"
	"github.com/shoplite/catalog-search/pkg/httpclient"
	"github.com/shoplite/catalog-search/pkg/kafka"
	"github.com/shoplite/catalog-search/pkg/tracing"
)

// App owns every long-lived dependency of the service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool     *pgxpool.Pool
	redis    *redis.Client
	server   *http.Server
	consumer *event.Consumer

	shutdownTracing func(context.Context) error
}

// New connects the stores and wires the service graph.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	shutdownTracing, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	pgCfg := cfg.PostgresPoolConfig()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisClientConfig())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	catalog := postgres.NewCatalogRepository(pool)
	resultCache := cacheredis.NewCache(redisClient)
	var recorder analytics.Recorder = analytics.Noop{}
	if cfg.Search.AnalyticsEnabled {
		recorder = analyticsredis.NewRecorder(redisClient, cfg.Search.RecentTTL)
	}

	categoryClient := client.NewCategoryClient(
		httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("product-service"),
			logger,
		),
		cfg.Search.ProductServiceURL,
	)

	searchService := service.NewSearchService(
		catalog, resultCache, recorder, categoryClient, logger,
		service.Config{
			MinQueryLength:      cfg.Search.MinQueryLength,
			SuggestionThreshold: cfg.Search.SuggestionThreshold,
			SuggestionLimit:     cfg.Search.SuggestionLimit,
			DefaultPerPage:      cfg.Search.DefaultPerPage,
			BestSellerSales:     cfg.Search.BestSellerSales,
			LiveTTL:             cfg.Search.LiveTTL,
			PageTTL:             cfg.Search.PageTTL,
			SuggestTTL:          cfg.Search.SuggestTTL,
			CategoriesTTL:       cfg.Search.CategoriesTTL,
			AnalyticsTimeout:    2 * time.Second,
		},
	)

	consumer := event.NewConsumer(event.Config{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		BestSellerSales: cfg.Search.BestSellerSales,
	}, searchService, logger)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", func(ctx context.Context) error {
		return kafka.PingBrokers(ctx, cfg.Kafka.Brokers)
	})

	searchHandler := handlerhttp.NewSearchHandler(searchService, logger)
	router := handlerhttp.NewRouter(searchHandler, healthHandler, handlerhttp.RouterConfig{
		JWTSecret:      cfg.HTTP.JWTSecret,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &App{
		cfg:             cfg,
		logger:          logger,
		pool:            pool,
		redis:           redisClient,
		server:          server,
		consumer:        consumer,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Run starts the HTTP server and the event consumer, then blocks until the
// context is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("http server starting", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		if err := a.consumer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("event consumer: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
		return a.shutdown()
	case err := <-errCh:
		a.logger.Error("component failed", slog.String("error", err.Error()))
		_ = a.shutdown()
		return err
	}
}

// shutdown drains the HTTP server and closes every dependency.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	var firstErr error

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("http shutdown failed", slog.String("error", err.Error()))
		firstErr = err
	}

	if err := a.consumer.Close(); err != nil {
		a.logger.Error("consumer close failed", slog.String("error", err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close failed", slog.String("error", err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}
	a.pool.Close()

	if err := a.shutdownTracing(ctx); err != nil {
		a.logger.Error("tracing shutdown failed", slog.String("error", err.Error()))
		if firstErr == nil {
			firstErr = err
		}
	}

	a.logger.Info("shutdown complete")
	return firstErr
}
