package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces counter keys inside a possibly shared Redis database.
const keyPrefix = "ratelimit:"

// incrScript atomically increments a counter and attaches the window TTL
// when the counter is created. Running it as a script closes the
// lost-update race a separate GET-then-SET sequence would have, and keeps
// the window fixed: the TTL is only set on the first request of a window,
// never refreshed by later ones. Returns {count, remaining ttl in ms}.
var incrScript = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
		ttl = tonumber(ARGV[1])
	end
	return {count, ttl}
`)

// decrScript decrements an existing counter without going below zero and
// without touching its TTL.
var decrScript = redis.NewScript(`
	local current = redis.call('GET', KEYS[1])
	if current == false or tonumber(current) <= 0 then
		return 0
	end
	return redis.call('DECR', KEYS[1])
`)

// RedisStore is a counter store shared across hosts, backed by Redis.
// Expiry is delegated to Redis key TTLs, so it needs no sweep goroutine.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(config Config) (*RedisStore, error) {
	if config.RedisAddr == "" {
		return nil, fmt.Errorf("redis address is required for redis counter store")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
		PoolSize: config.RedisPoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Increment advances the counter for key via the atomic increment script.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (Counter, error) {
	res, err := incrScript.Run(ctx, s.client, []string{keyPrefix + key}, window.Milliseconds()).Slice()
	if err != nil {
		return Counter{}, fmt.Errorf("redis increment failed: %w", err)
	}
	if len(res) != 2 {
		return Counter{}, fmt.Errorf("redis increment returned %d values, expected 2", len(res))
	}

	count, okCount := res[0].(int64)
	ttlMs, okTTL := res[1].(int64)
	if !okCount || !okTTL {
		return Counter{}, fmt.Errorf("redis increment returned unexpected types %T, %T", res[0], res[1])
	}

	return Counter{
		Count:     count,
		ResetTime: time.Now().Add(time.Duration(ttlMs) * time.Millisecond),
	}, nil
}

// Get reads the counter and its remaining TTL without modifying either.
func (s *RedisStore) Get(ctx context.Context, key string) (Counter, bool, error) {
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, keyPrefix+key)
	ttlCmd := pipe.PTTL(ctx, keyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Counter{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	count, err := getCmd.Int64()
	if errors.Is(err, redis.Nil) {
		return Counter{}, false, nil
	}
	if err != nil {
		return Counter{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	ttl := ttlCmd.Val()
	if ttl <= 0 {
		// Key present but TTL already gone: not a live window.
		return Counter{}, false, nil
	}

	return Counter{Count: count, ResetTime: time.Now().Add(ttl)}, true, nil
}

// Decrement reduces the counter for key by one, flooring at zero.
func (s *RedisStore) Decrement(ctx context.Context, key string) error {
	if err := decrScript.Run(ctx, s.client, []string{keyPrefix + key}).Err(); err != nil {
		return fmt.Errorf("redis decrement failed: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
