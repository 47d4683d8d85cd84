package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"exemplarparty/internal/game"
)

// TimerCache mirrors each room's saved timer snapshot.
type TimerCache interface {
	Save(ctx context.Context, code string, snap game.TimerSnapshot) error
	Load(ctx context.Context, code string) (*game.TimerSnapshot, error)
	Delete(ctx context.Context, code string) error
}

type timerCache struct {
	client *redis.Client
}

func NewTimerCache(client *redis.Client) TimerCache {
	return &timerCache{
		client: client,
	}
}

func (c *timerCache) key(code string) string {
	return "room:" + code + ":timer"
}

func (c *timerCache) Save(ctx context.Context, code string, snap game.TimerSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ttl := time.Duration(snap.Remaining)*time.Second + 10*time.Minute
	return c.client.Set(ctx, c.key(code), data, ttl).Err()
}

// Load returns nil, nil when no snapshot is stored.
func (c *timerCache) Load(ctx context.Context, code string) (*game.TimerSnapshot, error) {
	data, err := c.client.Get(ctx, c.key(code)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap game.TimerSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *timerCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}
