// Package secrets resolves named credentials at invocation time.
package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a named secret is absent from the store.
var ErrNotFound = errors.New("secret not found")

// Store exposes named secrets. Implementations must not cache values across
// lookups; each run resolves its own credentials.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// StaticStore serves secrets loaded once from configuration or environment.
type StaticStore struct {
	values map[string]string
}

func NewStaticStore(values map[string]string) *StaticStore {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &StaticStore{values: copied}
}

func (s *StaticStore) Get(_ context.Context, name string) (string, error) {
	v, ok := s.values[name]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}

// RedisStore reads secrets from a Redis hash, one field per secret name.
// Hosted secrets are rotated out of band by whoever owns the hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Get(ctx context.Context, name string) (string, error) {
	v, err := s.client.HGet(ctx, s.key, name).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s from redis: %w", name, err)
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}
