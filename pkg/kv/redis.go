package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a single Redis instance. Keys are wrapped
// with a prefix so multiple simulations can share one database.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds connection parameters.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "memex"
	}
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) wrap(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv marshal: %w", err)
	}
	return s.client.Set(ctx, s.wrap(key), data, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, s.wrap(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
