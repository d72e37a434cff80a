package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/berrylive/live-service/internal/config"
	"github.com/berrylive/live-service/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// RedisSnapshotCache implements SnapshotCache on redis.
type RedisSnapshotCache struct {
	client *redis.Client
	prefix string
}

// NewRedisSnapshotCache connects to redis and verifies the connection.
func NewRedisSnapshotCache(cfg config.RedisConfig, prefix string) (*RedisSnapshotCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSnapshotCache{
		client: client,
		prefix: prefix,
	}, nil
}

func (c *RedisSnapshotCache) BuildKey(roomID string) string {
	return fmt.Sprintf("%s:snapshot:%s", c.prefix, roomID)
}

func (c *RedisSnapshotCache) Get(ctx context.Context, key string) (*domain.RoomSnapshot, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var snapshot domain.RoomSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &snapshot, nil
}

func (c *RedisSnapshotCache) Set(ctx context.Context, key string, snapshot *domain.RoomSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisSnapshotCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

func (c *RedisSnapshotCache) Close() error {
	return c.client.Close()
}
