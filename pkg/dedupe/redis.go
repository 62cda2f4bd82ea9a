package dedupe

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisOpTimeout bounds each cache round-trip so a slow Redis can never
// stall the triage hot path.
const redisOpTimeout = 250 * time.Millisecond

// RedisCache shares the suppression window across gateway replicas. Keys
// carry the bucket in the fingerprint and a TTL as a safety net, so stale
// entries expire even if a replica crashes mid-window.
type RedisCache struct {
	client *redis.Client
	window time.Duration
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection. A non-positive
// window falls back to the package default.
func NewRedisCache(addr string, window time.Duration) (*RedisCache, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client, window: window, prefix: "scamguard:dedupe:"}, nil
}

// Seen implements Cache. Errors fail open: a Redis outage means duplicate
// alerts, never suppressed ones.
func (c *RedisCache) Seen(text string, now time.Time) bool {
	fp := Fingerprint(text, now, c.window)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	created, err := c.client.SetNX(ctx, c.prefix+fp, 1, c.window).Result()
	if err != nil {
		log.Printf("[WARN] Dedup cache unavailable, treating message as new: %v", err)
		return false
	}
	return !created
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
