package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/pharma-billing/internal/config"
	"github.com/noah-isme/pharma-billing/internal/obs"
	"github.com/noah-isme/pharma-billing/internal/store"
)

// Dependencies holds the process-wide clients shared by the API and worker binaries.
type Dependencies struct {
	Config *config.Config
	Logger zerolog.Logger
	DB     *pgxpool.Pool
	Redis  *redis.Client

	shutdownTracer func(context.Context) error
}

// Open initialises tracing, metrics, Postgres and Redis for a service. The
// caller owns the result and must call Close.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, service string) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Logger: logger}

	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	}
	if cfg.Obs.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   service,
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			deps.shutdownTracer = shutdown
		}
	}

	pool, err := NewPool(ctx, cfg.DatabaseURL, service)
	if err != nil {
		deps.Close(ctx)
		return nil, err
	}
	deps.DB = pool

	rdb, err := NewRedis(ctx, cfg.RedisURL, cfg.Obs.MetricsEnabled, logger)
	if err != nil {
		deps.Close(ctx)
		return nil, err
	}
	deps.Redis = rdb
	return deps, nil
}

// Close releases every client that was opened. It is safe on partial setups.
func (d *Dependencies) Close(ctx context.Context) {
	if d == nil {
		return
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	if d.shutdownTracer != nil {
		if err := d.shutdownTracer(ctx); err != nil {
			d.Logger.Error().Err(err).Msg("shutdown tracer")
		}
	}
}

// NewPool connects a traced pgx pool and verifies it with a ping.
func NewPool(ctx context.Context, databaseURL, applicationName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis connects an instrumented redis client and verifies it with a ping.
// Instrumentation failures are logged, not fatal.
func NewRedis(ctx context.Context, redisURL string, withMetrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewLimiterStore wires a rate limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	if rdb == nil {
		return nil, errors.New("app: redis client required for limiter store")
	}
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "ratelimit"})
}

// TaskRedisOpt converts the shared REDIS_URL into asynq connection options.
func TaskRedisOpt(redisURL string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse task redis url: %w", err)
	}
	return opt, nil
}

// RunMigrations applies embedded schema migrations when enabled.
func RunMigrations(cfg *config.Config, logger zerolog.Logger) error {
	if !cfg.RunMigrations {
		logger.Info().Msg("migrations disabled")
		return nil
	}
	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	logger.Info().Msg("migrations applied")
	return nil
}
