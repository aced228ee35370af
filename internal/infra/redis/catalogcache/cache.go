package infra_redis_catalogcache

import (
	"encoding/json"
	"time"

	"github.com/go-redis/redis"
)

// Cache keeps rarely-changing catalog lookups (genres, languages) out of
// the upstream API on every filter-panel open.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// Get unmarshals the cached value into out. The second return is false
// on a miss or any decode problem; the caller just falls through to the
// upstream lookup.
func (c *Cache) Get(key string, out any) bool {
	raw, err := c.client.Get(key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false
	}
	return true
}

func (c *Cache) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(key, raw, c.ttl).Err()
}
