package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// * Acquire занимает ключ на ttl атомарно через SETNX.
// Возвращает true, если ключ был свободен, и false, если период ожидания еще не истек.
func (r *RedisRepo) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	const op = "storage.redis.Acquire"

	ok, err := r.client.SetNX(ctx, cooldownKey(key), time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// * Release освобождает ключ раньше срока.
func (r *RedisRepo) Release(ctx context.Context, key string) error {
	const op = "storage.redis.Release"

	if err := r.client.Del(ctx, cooldownKey(key)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}

func cooldownKey(key string) string {
	return "cooldown:" + key
}
