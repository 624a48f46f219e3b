package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// runningTTL caps the in-progress flag so a crashed run cannot lock the
// account out forever.
const runningTTL = 4 * time.Hour

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Ping Redis to check the connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cannot connect to Redis at %s: %w", addr, err)
	}

	return &RedisCache{client: rdb}, nil
}

func (r *RedisCache) AcquireWindow(accountID string, window time.Duration) (bool, error) {
	key := windowKey(accountID)
	return r.client.SetNX(context.Background(), key, "1", window).Result()
}

func (r *RedisCache) MarkRunning(accountID string) error {
	return r.client.Set(context.Background(), runningKey(accountID), "1", runningTTL).Err()
}

func (r *RedisCache) ClearRunning(accountID string) error {
	return r.client.Del(context.Background(), runningKey(accountID)).Err()
}

func (r *RedisCache) IsRunning(accountID string) (bool, error) {
	count, err := r.client.Exists(context.Background(), runningKey(accountID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// helpers to standardize keys
func windowKey(accountID string) string {
	return fmt.Sprintf("backup:window:%s", accountID)
}

func runningKey(accountID string) string {
	return fmt.Sprintf("backup:running:%s", accountID)
}
