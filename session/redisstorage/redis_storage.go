// Package redisstorage keeps a storage scope under a Redis key prefix, so a
// portal profile can be shared by several portal processes.
package redisstorage

import (
	"context"

	"github.com/jrsteele09/go-dept-admin/session"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ session.Storage = (*RedisStorage)(nil)

const defaultPrefix = "deptadmin:"

type RedisStorage struct {
	client redis.UniversalClient
	prefix string
}

// New creates a RedisStorage scoped to profile.
func New(client redis.UniversalClient, profile string) *RedisStorage {
	return NewWithPrefix(client, defaultPrefix+profile+":")
}

// NewWithPrefix creates a RedisStorage with a custom key prefix.
func NewWithPrefix(client redis.UniversalClient, prefix string) *RedisStorage {
	return &RedisStorage{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", session.ErrKeyNotFound
		}
		return "", errors.Wrap(err, "redis get")
	}
	return v, nil
}

func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (s *RedisStorage) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}
