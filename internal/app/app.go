package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/booking-engine/internal/appointment"
	"github.com/hackgods/booking-engine/internal/availability"
	"github.com/hackgods/booking-engine/internal/clock"
	"github.com/hackgods/booking-engine/internal/config"
	"github.com/hackgods/booking-engine/internal/db"
	redisclient "github.com/hackgods/booking-engine/internal/redis"
)

// App holds the connections and services shared by the binaries.
type App struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client // nil with the local lock backend
	Repo    *appointment.PgRepository
	Service *appointment.Service
	Logger  *zap.Logger
}

// New connects to Postgres and, when configured, Redis, then builds the
// booking service.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		return nil, fmt.Errorf("postgres connection: %w", err)
	}
	logger.Info("connected to Postgres")

	a := &App{Pool: pool, Logger: logger}

	var locker redisclient.Locker
	if cfg.UsesRedis() {
		rdb, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("redis connection: %w", err)
		}
		a.Redis = rdb
		locker = redisclient.NewRedisDayLocker(rdb, cfg.LockTTL, logger.Named("lock"))
		logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
	} else {
		locker = redisclient.NewLocalDayLocker()
		logger.Warn("using in-process day locks; run a single api-server instance")
	}

	zones, err := clock.NewResolver(cfg.DefaultTimezone, logger.Named("clock"))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Repo = appointment.NewPgRepository(pool)
	a.Service = appointment.NewService(a.Repo, a.Repo, locker, zones, logger.Named("booking"),
		appointment.WithBuffer(availability.BufferPolicy{Before: cfg.BufferBefore, After: cfg.BufferAfter}),
	)
	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("error closing redis", zap.Error(err))
		}
	}
	a.Pool.Close()
}
