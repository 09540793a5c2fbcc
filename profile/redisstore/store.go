// Package redisstore provides a Redis-backed profile.Store. Each record is a
// Redis hash keyed by conversation identifier, which maps one-to-one onto the
// profile's flat string fields.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/A-calculus/personalisedU/logging"
	"github.com/A-calculus/personalisedU/profile"
)

const keyPrefix = "profile:"

// Options configures the Redis profile store.
type Options struct {
	Logger logging.Logger
}

// Store implements profile.Store on top of a Redis hash per record.
type Store struct {
	client *redis.Client
	logger logging.Logger
}

// NewStore connects to Redis at the given URL and verifies the connection.
func NewStore(redisURL string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	opts.Logger.Info("profile.redis.connected", "addr", redisOpts.Addr)
	return &Store{client: client, logger: opts.Logger}, nil
}

// NewStoreFromClient wraps an existing Redis client.
func NewStoreFromClient(client *redis.Client, optFns ...func(o *Options)) *Store {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, logger: opts.Logger}
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error { return s.client.Close() }

// Get returns the record for key or profile.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (profile.Record, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		return profile.Record{}, fmt.Errorf("read profile %s: %w", key, err)
	}
	if len(fields) == 0 {
		return profile.Record{}, profile.ErrNotFound
	}
	return profile.FromMap(fields), nil
}

// Upsert merges fields into the stored hash, inserting it when absent. The
// existence check precedes the write.
func (s *Store) Upsert(ctx context.Context, key string, fields map[string]string) (profile.Record, error) {
	redisKey := keyPrefix + key

	exists, err := s.client.Exists(ctx, redisKey).Result()
	if err != nil {
		return profile.Record{}, fmt.Errorf("check profile %s: %w", key, err)
	}

	values := make(map[string]any, len(fields))
	for name, value := range fields {
		values[name] = value
	}
	if err := s.client.HSet(ctx, redisKey, values).Err(); err != nil {
		return profile.Record{}, fmt.Errorf("write profile %s: %w", key, err)
	}

	if exists == 0 {
		s.logger.Debug("profile.redis.inserted", "key", key)
	} else {
		s.logger.Debug("profile.redis.updated", "key", key)
	}
	return s.Get(ctx, key)
}
