package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/waldjos/zoriapp/internal/model"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func key(date string) string {
	return fmt.Sprintf("dispatch:%s", date)
}

func (c *RedisCache) StoreLast(ctx context.Context, date string, entry model.SendLogEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(date), b, c.ttl).Err()
}

// LastResult returns nil without error when no dispatch has been cached for
// the date.
func (c *RedisCache) LastResult(ctx context.Context, date string) (*model.SendLogEntry, error) {
	raw, err := c.rdb.Get(ctx, key(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry model.SendLogEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
