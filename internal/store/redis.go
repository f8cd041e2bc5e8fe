package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisSlotStore keeps slots as plain redis strings under a key prefix
type RedisSlotStore struct {
	redis  *redis.Client
	prefix string
}

func NewRedisSlotStore(client *redis.Client, prefix string) *RedisSlotStore {
	return &RedisSlotStore{redis: client, prefix: prefix}
}

func (s *RedisSlotStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading slot %s: %w", key, err)
	}
	return data, nil
}

// Put overwrites the slot with no expiry
func (s *RedisSlotStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.redis.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("error writing slot %s: %w", key, err)
	}
	return nil
}
