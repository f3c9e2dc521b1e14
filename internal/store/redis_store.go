package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionTTL = 24 * time.Hour

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) SetSession(ctx context.Context, endpointID, addr string) error {
	return r.client.Set(ctx, "session:"+endpointID, addr, sessionTTL).Err()
}

func (r *RedisStore) GetSession(ctx context.Context, endpointID string) (string, error) {
	return r.get(ctx, "session:"+endpointID)
}

func (r *RedisStore) DeleteSession(ctx context.Context, endpointID string) error {
	return r.client.Del(ctx, "session:"+endpointID).Err()
}

func (r *RedisStore) IsProcessed(ctx context.Context, msgID string) (bool, error) {
	count, err := r.client.Exists(ctx, "processed:"+msgID).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RedisStore) MarkProcessed(ctx context.Context, msgID string, ttl time.Duration) error {
	return r.client.Set(ctx, "processed:"+msgID, "1", ttl).Err()
}

func (r *RedisStore) SetAckStatus(ctx context.Context, msgID, status string, ttl time.Duration) error {
	return r.client.Set(ctx, "ack:"+msgID, status, ttl).Err()
}

func (r *RedisStore) AckStatus(ctx context.Context, msgID string) (string, error) {
	return r.get(ctx, "ack:"+msgID)
}

func (r *RedisStore) get(ctx context.Context, key string) (string, error) {
	result, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return result, err
}
