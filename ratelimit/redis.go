// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grazios/oshijiku/auth"
)

const (
	lockPrefix       = "lock:"
	defaultLockTTL   = 5 * time.Second
	lockPollInterval = 10 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// NewRedis is a limiter whose windows and locks live in Redis, so several
// server instances share one budget per client.
func NewRedis(client *redis.Client, budgets map[Scope]int, opts ...Option) *Limiter {
	return New(NewRedisStore(client), NewRedisLocker(client), budgets, opts...)
}

// RedisStore keeps each window as a JSON array of unix-nano timestamps that
// expires together with the window.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]time.Time, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load window: %w", err)
	}

	var nanos []int64
	if err := json.Unmarshal(data, &nanos); err != nil {
		// A corrupt window is treated as empty and overwritten on save
		return nil, nil
	}

	stamps := make([]time.Time, len(nanos))
	for i, n := range nanos {
		stamps[i] = time.Unix(0, n)
	}
	return stamps, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, stamps []time.Time, ttl time.Duration) error {
	nanos := make([]int64, len(stamps))
	for i, ts := range stamps {
		nanos[i] = ts.UnixNano()
	}
	data, err := json.Marshal(nanos)
	if err != nil {
		return fmt.Errorf("marshal window: %w", err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("save window: %w", err)
	}
	return nil
}

// RedisLocker is a SET NX lock with a token so only the holder releases it.
// The lock expires after ttl in case its holder dies.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, ttl: defaultLockTTL}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := auth.GenerateID(16)
	if err != nil {
		return nil, err
	}
	lockKey := lockPrefix + key

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			released := false
			return func() {
				if released {
					return
				}
				released = true
				// Release even if the request context is already done
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				releaseScript.Run(releaseCtx, r.client, []string{lockKey}, token)
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}
