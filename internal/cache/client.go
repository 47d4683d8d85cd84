package cache

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Connect creates a Redis client and pings it. A redis:// prefix on addr is dropped.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	addr = strings.TrimPrefix(addr, "redis://")
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
