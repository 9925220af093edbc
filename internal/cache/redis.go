package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"gamewatch/internal/config"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache stores rendered report payloads by key
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value; a zero ttl keeps it until evicted
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// ErrCacheMiss is returned when a key is not found in the cache
var ErrCacheMiss = errors.New("cache miss")

// RedisCache implements Cache on a single redis database with a key prefix
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects and pings redis before returning
func NewRedisCache(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	log.Info().
		Str("address", cfg.Address).
		Str("prefix", cfg.Prefix).
		Int("db", cfg.DB).
		Msg("Redis cache initialized")

	return &RedisCache{
		client: client,
		prefix: cfg.Prefix,
	}, nil
}

func (c *RedisCache) formatKey(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	formattedKey := c.formatKey(key)

	start := time.Now()
	result, err := c.client.Get(ctx, formattedKey).Bytes()
	duration := time.Since(start)

	if errors.Is(err, redis.Nil) {
		log.Debug().
			Str("key", formattedKey).
			Dur("duration", duration).
			Msg("Cache miss")
		return nil, ErrCacheMiss
	} else if err != nil {
		log.Error().
			Err(err).
			Str("key", formattedKey).
			Dur("duration", duration).
			Msg("Error getting value from Redis")
		return nil, err
	}

	log.Debug().
		Str("key", formattedKey).
		Int("size", len(result)).
		Dur("duration", duration).
		Msg("Cache hit")

	return result, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	formattedKey := c.formatKey(key)

	start := time.Now()
	err := c.client.Set(ctx, formattedKey, value, ttl).Err()

	if err != nil {
		log.Error().
			Err(err).
			Str("key", formattedKey).
			Int("size", len(value)).
			Dur("ttl", ttl).
			Dur("duration", time.Since(start)).
			Msg("Error setting value in Redis")
		return err
	}

	log.Debug().
		Str("key", formattedKey).
		Int("size", len(value)).
		Dur("ttl", ttl).
		Dur("duration", time.Since(start)).
		Msg("Cached value")

	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	formattedKey := c.formatKey(key)
	if err := c.client.Del(ctx, formattedKey).Err(); err != nil {
		log.Error().Err(err).Str("key", formattedKey).Msg("Error deleting key from Redis")
		return err
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("Error pinging Redis")
		return err
	}
	return nil
}

func (c *RedisCache) Close() error {
	log.Info().Msg("Closing Redis cache connection")
	return c.client.Close()
}

// GetJSON reads key and decodes it into v. A miss returns ErrCacheMiss.
func GetJSON(ctx context.Context, c Cache, key string, v any) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding cached %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s for cache: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}
