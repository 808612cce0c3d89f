// Package config provides application configuration management using Viper.
// Configuration is loaded from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache drivers accepted by cache.driver.
const (
	CacheDriverRedis     = "redis"
	CacheDriverMemcached = "memcached"
	CacheDriverPostgres  = "postgres"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Memcached MemcachedConfig `mapstructure:"memcached"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Env             string        `mapstructure:"env"` // development, staging, production
	Port            int           `mapstructure:"port"`
	Debug           bool          `mapstructure:"debug"`
	BodyLimit       int           `mapstructure:"body_limit"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ProviderConfig holds upstream API settings.
type ProviderConfig struct {
	HackerNews ProviderEndpoint `mapstructure:"hackernews"`
}

// ProviderEndpoint holds a single provider's configuration.
type ProviderEndpoint struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
	CB      CBConfig      `mapstructure:"circuit_breaker"`
}

// RetryConfig holds retry settings. Zero attempts disables retries.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	WaitTime    time.Duration `mapstructure:"wait_time"`
	MaxWaitTime time.Duration `mapstructure:"max_wait_time"`
}

// CBConfig holds circuit breaker settings.
type CBConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// CacheConfig holds caching settings shared by every driver.
type CacheConfig struct {
	Driver    string        `mapstructure:"driver"` // redis, memcached, postgres
	TTL       time.Duration `mapstructure:"ttl"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}

// RedisConfig holds Redis connection settings for the cache and distributed locking.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MemcachedConfig holds memcached settings.
type MemcachedConfig struct {
	Servers      []string      `mapstructure:"servers"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Name         string        `mapstructure:"name"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	SSLMode      string        `mapstructure:"ssl_mode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// PipelineConfig holds aggregation tuning.
type PipelineConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"` // 0 = unbounded
}

// RefreshConfig holds background cache warm-up settings.
type RefreshConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	OnStartup bool          `mapstructure:"on_startup"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Counts    []int         `mapstructure:"counts"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// SentryConfig holds Sentry error tracking settings.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// TracingConfig holds OpenTelemetry export settings.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file and environment variables.
// Priority: env vars > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found, continue with defaults + env vars
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate reports settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Cache.Driver {
	case CacheDriverRedis, CacheDriverMemcached, CacheDriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("cache.driver %q is not one of redis, memcached, postgres", c.Cache.Driver))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Cache.Driver == CacheDriverMemcached && len(c.Memcached.Servers) == 0 {
		errs = append(errs, errors.New("memcached.servers is required for the memcached driver"))
	}
	if c.Provider.HackerNews.BaseURL == "" {
		errs = append(errs, errors.New("provider.hackernews.base_url is required"))
	}
	if c.Provider.HackerNews.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("provider.hackernews.retry.max_attempts must not be negative"))
	}
	if c.Pipeline.MaxConcurrency < 0 {
		errs = append(errs, errors.New("pipeline.max_concurrency must not be negative"))
	}
	if c.Refresh.Enabled {
		if c.Refresh.Interval <= 0 {
			errs = append(errs, errors.New("refresh.interval must be positive"))
		}
		for _, n := range c.Refresh.Counts {
			if n <= 0 {
				errs = append(errs, fmt.Errorf("refresh.counts contains %d, counts must be greater than 0", n))
			}
		}
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be between 0 and 1"))
	}

	return errors.Join(errs...)
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "best-stories-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.debug", false)
	v.SetDefault("app.body_limit", 64*1024)
	v.SetDefault("app.shutdown_timeout", "10s")

	// Hacker News defaults
	v.SetDefault("provider.hackernews.base_url", "https://hacker-news.firebaseio.com/v0")
	v.SetDefault("provider.hackernews.timeout", "10s")
	v.SetDefault("provider.hackernews.retry.max_attempts", 0)
	v.SetDefault("provider.hackernews.retry.wait_time", "200ms")
	v.SetDefault("provider.hackernews.retry.max_wait_time", "2s")
	v.SetDefault("provider.hackernews.circuit_breaker.max_requests", 3)
	v.SetDefault("provider.hackernews.circuit_breaker.interval", "60s")
	v.SetDefault("provider.hackernews.circuit_breaker.timeout", "30s")
	v.SetDefault("provider.hackernews.circuit_breaker.failure_ratio", 0.5)

	// Cache defaults
	v.SetDefault("cache.driver", CacheDriverRedis)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.key_prefix", "best-stories")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Memcached defaults
	v.SetDefault("memcached.servers", []string{"localhost:11211"})
	v.SetDefault("memcached.timeout", "500ms")
	v.SetDefault("memcached.max_idle_conns", 10)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "best_stories")
	v.SetDefault("database.user", "app")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", "5m")

	// Pipeline defaults
	v.SetDefault("pipeline.max_concurrency", 0)

	// Refresh defaults
	v.SetDefault("refresh.enabled", false)
	v.SetDefault("refresh.interval", "4m")
	v.SetDefault("refresh.on_startup", true)
	v.SetDefault("refresh.timeout", "30s")
	v.SetDefault("refresh.counts", []int{10, 30})

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")

	// Sentry defaults
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_ratio", 1.0)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
