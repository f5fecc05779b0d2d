package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"pasmi/terminal/internal/domain"
)

type RedisReportsCache struct {
	client *redis.Client
}

func NewRedisReportsCache(addr string, password string, db int) *RedisReportsCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisReportsCache{client: client}
}

func (c *RedisReportsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisReportsCache) Close() error {
	return c.client.Close()
}

func (c *RedisReportsCache) Get(ctx context.Context, key string) ([]domain.ReportRecord, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var records []domain.ReportRecord
	if err := json.Unmarshal([]byte(val), &records); err != nil {
		return nil, false, err
	}
	return records, true, nil
}

func (c *RedisReportsCache) Set(ctx context.Context, key string, value []domain.ReportRecord, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisReportsCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
