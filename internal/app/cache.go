package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adanyl0v/go-todo-client/internal/cache"
)

const redisPingTimeout = 5 * time.Second

func (a *Application) MustConnectCache() {
	cfg := a.config.Cache

	switch cfg.Driver {
	case cache.DriverMemory:
		a.mirror = cache.NewMemoryMirror()
	case cache.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		mirror := cache.NewRedisMirror(client, cfg.Prefix, cfg.TTL)

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()

		err := mirror.Ping(ctx)
		if err != nil {
			_ = client.Close()
			a.logger.Error().
				Err(err).
				Str("addr", cfg.RedisAddr).
				Msg("failed to ping redis")
			panic(err)
		}
		a.mirror = mirror
		a.redisMirror = mirror
	default:
		err := fmt.Errorf("%w: %s", cache.ErrUnknownDriver, cfg.Driver)
		a.logger.Error().
			Err(err).
			Msg("failed to connect to cache")
		panic(err)
	}

	a.logger.Info().
		Str("driver", cfg.Driver).
		Msg("connected to cache")
}

// ResetCache drops whatever a previous run left in the mirror.
func (a *Application) ResetCache(ctx context.Context) {
	err := a.mirror.Invalidate(ctx)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Msg("failed to reset cache")
		return
	}
	a.logger.Info().Msg("reset cache")
}

func (a *Application) disconnectCache() {
	stats := a.mirror.Stats()

	if a.redisMirror != nil {
		err := a.redisMirror.Close()
		if err != nil {
			a.logger.Error().
				Err(err).
				Msg("failed to close redis connection")
			return
		}
	}

	a.logger.Info().
		Uint64("gets", stats.Gets).
		Uint64("sets", stats.Sets).
		Uint64("errors", stats.Errors).
		Msg("disconnected from cache")
}
