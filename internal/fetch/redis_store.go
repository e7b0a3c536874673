package fetch

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	versionKey  = "findash:fetch:version"
	keyPrefix   = "findash:fetch"
	bumpChannel = "findash.bump"
)

// RedisStore keeps tables in Redis under versioned keys. Bumping the version
// orphans every entry written before it; they expire with their TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Version returns the current key version, initialising it when missing.
func (s *RedisStore) Version(ctx context.Context) (int64, error) {
	ver, err := s.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := s.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return s.client.Get(ctx, versionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := s.client.Set(ctx, versionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

func (s *RedisStore) versioned(ctx context.Context, key string) (string, error) {
	ver, err := s.Version(ctx)
	if err != nil {
		return "", err
	}
	return keyPrefix + ":" + strconv.FormatInt(ver, 10) + ":" + key, nil
}

// Get loads a value, returning ErrMiss when absent.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	full, err := s.versioned(ctx, key)
	if err != nil {
		return nil, err
	}
	raw, err := s.client.Get(ctx, full).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return raw, err
}

// Set stores a value with ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	full, err := s.versioned(ctx, key)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, full, value, ttl).Err()
}

// Bump increments the version and notifies other processes.
func (s *RedisStore) Bump(ctx context.Context) error {
	ver, err := s.client.Incr(ctx, versionKey).Result()
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation subscribes to version bumps published on channel and
// calls onBump for each one until ctx is done. The version itself lives in
// Redis, so listeners only need to drop state derived from it.
func (s *RedisStore) ListenForInvalidation(ctx context.Context, channel string, onBump func(version int64)) error {
	if channel == "" {
		channel = bumpChannel
	}
	pubsub := s.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				if onBump != nil {
					onBump(ver)
				}
			}
		}
	}()
	return nil
}
