package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dearher/bagstore/internal/domain/cart"
)

// RedisSlotStore keeps each visitor's cart under "<prefix>:<visitor id>".
// A zero TTL stores carts without expiry; a positive TTL is refreshed on
// every save.
type RedisSlotStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisSlotStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisSlotStore {
	return &RedisSlotStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisSlotStore) Slot(visitorID string) cart.Slot {
	return &redisSlot{client: s.client, key: s.prefix + ":" + visitorID, ttl: s.ttl}
}

type redisSlot struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

func (s *redisSlot) Load(ctx context.Context) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *redisSlot) Save(ctx context.Context, data []byte) error {
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}
