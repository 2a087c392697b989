package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "comanda:report:"

// Redis keeps report JSON under keyPrefix. For every month an entry depends on, the
// entry's key is added to a per-month set so Invalidate can find it.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func New(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Connect opens a client for addr and checks it answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}

	return client, nil
}

func monthSet(month string) string {
	return keyPrefix + "month:" + month
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}

		return false, fmt.Errorf("getting %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}

	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, v any, months []string) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+key, payload, r.ttl)

		for _, m := range months {
			pipe.SAdd(ctx, monthSet(m), keyPrefix+key)

			if r.ttl > 0 {
				pipe.Expire(ctx, monthSet(m), r.ttl)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	return nil
}

func (r *Redis) Invalidate(ctx context.Context, month string) error {
	keys, err := r.client.SMembers(ctx, monthSet(month)).Result()
	if err != nil {
		return fmt.Errorf("listing entries for %s: %w", month, err)
	}

	keys = append(keys, monthSet(month))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting entries for %s: %w", month, err)
	}

	return nil
}
