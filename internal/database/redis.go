package database

import (
	"context"
	"fmt"

	"krishi-web/internal/config"
	"krishi-web/internal/utils"

	"github.com/redis/go-redis/v9"
)

// NewRedis connects the client used for import progress. Callers treat an
// error as "Redis unavailable" and carry on without it.
func NewRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.GetRedisAddr(), err)
	}

	utils.GetLogger().WithField("addr", cfg.GetRedisAddr()).Info("Redis connected")
	return client, nil
}
