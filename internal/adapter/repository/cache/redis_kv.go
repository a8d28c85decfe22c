// Package cache stores serialized collections in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sinyoro/market-service/internal/config"
	"github.com/sinyoro/market-service/internal/platform/logger"
)

type RedisKV struct {
	client *redis.Client
	prefix string
	logger *logger.Logger
}

func NewRedisClient(cfg *config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Error("Failed to connect to Redis", zap.String("address", cfg.Address), zap.Error(err))
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Address, err)
	}
	log.Info("Successfully connected to Redis", zap.String("address", cfg.Address))
	return rdb, nil
}

// NewRedisKV keys every entry as prefix+key. Entries never expire; listing
// retention is handled by the expiry job.
func NewRedisKV(client *redis.Client, prefix string, log *logger.Logger) *RedisKV {
	return &RedisKV{
		client: client,
		prefix: prefix,
		logger: log.Named("redis_kv"),
	}
}

func (r *RedisKV) Name() string { return "redis" }

func (r *RedisKV) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Redis Get operation failed", zap.String("key", r.prefix+key), zap.Error(err))
		return nil, fmt.Errorf("RedisKV.Load for key '%s': %w", key, err)
	}
	return val, nil
}

func (r *RedisKV) Save(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, data, 0).Err(); err != nil {
		r.logger.Error("Redis Set operation failed", zap.String("key", r.prefix+key), zap.Error(err))
		return fmt.Errorf("RedisKV.Save for key '%s': %w", key, err)
	}
	return nil
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
