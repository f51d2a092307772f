package reports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cachePrefix = "reports:"

// Cache memoises rendered reports in redis. Concurrent requests for the
// same key collapse into one computation via singleflight. A nil client
// disables caching entirely.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache builds a cache with the given TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetOrCompute returns the cached value for key, computing and storing
// it on a miss. dest must be a pointer.
func (c *Cache) GetOrCompute(ctx context.Context, key string, dest any, compute func() (any, error)) error {
	if c == nil || c.client == nil {
		v, err := compute()
		if err != nil {
			return err
		}
		return remarshal(v, dest)
	}

	full := cachePrefix + key
	if raw, err := c.client.Get(ctx, full).Bytes(); err == nil {
		return json.Unmarshal(raw, dest)
	}

	v, err, _ := c.group.Do(full, func() (any, error) {
		v, err := compute()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		// a failed write only costs the memoisation
		c.client.Set(ctx, full, raw, c.ttl)
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dest)
}

// Invalidate drops every cached report. Called after reconciliation so
// stale balances never outlive a mutation by more than the in-flight
// requests.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	keys, err := c.client.Keys(ctx, cachePrefix+"*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func remarshal(v, dest any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
