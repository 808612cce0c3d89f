// Package main is the entry point for the best-stories-service API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"best-stories-service/internal/app/service"
	"best-stories-service/internal/config"
	"best-stories-service/internal/domain"
	"best-stories-service/internal/infra/memcached"
	"best-stories-service/internal/infra/postgres"
	"best-stories-service/internal/infra/postgres/migrations"
	"best-stories-service/internal/infra/provider"
	"best-stories-service/internal/infra/provider/hackernews"
	rediscache "best-stories-service/internal/infra/redis"
	"best-stories-service/internal/job"
	"best-stories-service/internal/logger"
	"best-stories-service/internal/tracing"
	"best-stories-service/internal/transport/httpserver"
	"best-stories-service/internal/validator"
	"best-stories-service/pkg/locker"
)

func main() {
	cfg, err := config.Load(os.Getenv("APP_CONFIG_FILE"))
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(
		logger.Config{
			Level:  cfg.Logger.Level,
			Format: cfg.Logger.Format,
			Output: cfg.Logger.Output,
		},
		logger.SentryConfig{
			Enabled:     cfg.Sentry.Enabled,
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		},
	)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting best-stories-service",
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.App.Name,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// Redis backs the default cache driver and the refresh lock.
	var redisClient *redis.Client
	if cfg.Cache.Driver == config.CacheDriverRedis || cfg.Refresh.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr()))
	}

	cache, closeCache, err := newCache(ctx, cfg, redisClient, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize cache", zap.Error(err))
	}
	defer closeCache()

	hn := hackernews.New(
		provider.ClientConfig{
			BaseURL: cfg.Provider.HackerNews.BaseURL,
			Timeout: cfg.Provider.HackerNews.Timeout,
			Retry: provider.RetryConfig{
				MaxAttempts: cfg.Provider.HackerNews.Retry.MaxAttempts,
				WaitTime:    cfg.Provider.HackerNews.Retry.WaitTime,
				MaxWaitTime: cfg.Provider.HackerNews.Retry.MaxWaitTime,
			},
			CB: provider.CBConfig{
				MaxRequests:  cfg.Provider.HackerNews.CB.MaxRequests,
				Interval:     cfg.Provider.HackerNews.CB.Interval,
				Timeout:      cfg.Provider.HackerNews.CB.Timeout,
				FailureRatio: cfg.Provider.HackerNews.CB.FailureRatio,
			},
		},
		log.Logger,
	)

	checkCtx, cancelCheck := context.WithTimeout(ctx, 5*time.Second)
	if err := hn.HealthCheck(checkCtx); err != nil {
		log.Warn("upstream not reachable at startup", zap.Error(err))
	}
	cancelCheck()

	storiesSvc := service.NewBestStoriesService(hn, cache, service.PipelineConfig{
		CacheTTL:       cfg.Cache.TTL,
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
	}, log.Logger)
	refreshSvc := service.NewRefreshService(storiesSvc, cache, log.Logger)

	server, err := httpserver.NewServer(
		httpserver.ServerConfig{
			Port:           cfg.App.Port,
			BodyLimit:      cfg.App.BodyLimit,
			Debug:          cfg.App.Debug,
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsPath:    cfg.Metrics.Path,
			RefreshCounts:  cfg.Refresh.Counts,
		},
		storiesSvc,
		refreshSvc,
		cache,
		validator.New(),
		log.Logger,
	)
	if err != nil {
		log.Fatal("failed to create HTTP server", zap.Error(err))
	}

	var scheduler *job.RefreshScheduler
	if cfg.Refresh.Enabled {
		purger, _ := cache.(job.ExpiredPurger)
		scheduler = job.NewRefreshScheduler(
			refreshSvc,
			purger,
			job.RefreshConfig{
				Interval: cfg.Refresh.Interval,
				Timeout:  cfg.Refresh.Timeout,
				Counts:   cfg.Refresh.Counts,
			},
			log.Logger,
			locker.NewRedisLocker(redisClient, cfg.Cache.KeyPrefix, log.Logger),
		)
		scheduler.Start(cfg.Refresh.OnStartup)
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutdown signal received")

		if scheduler != nil {
			scheduler.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		if err := server.App.ShutdownWithContext(ctx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Warn("tracing shutdown error", zap.Error(err))
		}
	}()

	if err := server.Start(cfg.App.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

// newCache builds the configured cache driver. The returned func releases
// whatever the driver opened.
func newCache(
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	log *zap.Logger,
) (domain.Cache, func(), error) {
	switch cfg.Cache.Driver {
	case config.CacheDriverRedis:
		return rediscache.NewCache(redisClient, log, cfg.Cache.KeyPrefix), func() {}, nil

	case config.CacheDriverMemcached:
		cache := memcached.NewCache(memcached.Config{
			Servers:      cfg.Memcached.Servers,
			Timeout:      cfg.Memcached.Timeout,
			MaxIdleConns: cfg.Memcached.MaxIdleConns,
		}, log, cfg.Cache.KeyPrefix)
		if err := cache.Ping(ctx); err != nil {
			_ = cache.Close()
			return nil, nil, fmt.Errorf("memcached: %w", err)
		}
		log.Info("connected to memcached", zap.Strings("servers", cfg.Memcached.Servers))

		return cache, func() { _ = cache.Close() }, nil

	case config.CacheDriverPostgres:
		db, err := postgres.NewConnection(ctx, postgres.Config{
			Host:         cfg.Database.Host,
			Port:         cfg.Database.Port,
			Name:         cfg.Database.Name,
			User:         cfg.Database.User,
			Password:     cfg.Database.Password,
			SSLMode:      cfg.Database.SSLMode,
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			MaxLifetime:  cfg.Database.MaxLifetime,
			Debug:        cfg.App.Debug,
		}, log)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := migrations.Run(db); err != nil {
			_ = postgres.Close(db)
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		log.Info("database migrations completed")

		return postgres.NewCacheStore(db, log, cfg.Cache.KeyPrefix), func() { _ = postgres.Close(db) }, nil
	}

	return nil, nil, errors.New("unknown cache driver " + cfg.Cache.Driver)
}
