// Package kvstore wraps the Redis-backed ephemeral store. One Store per
// logical namespace; the three namespaces live in separate Redis databases so
// keys cannot collide. Every call is retried with backoff on transient
// connectivity failure before an infrastructure error escapes.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/surdiana/authd/internal/errors"
	"github.com/surdiana/authd/pkg/retry"
)

// Config holds connection settings shared by all namespaces.
type Config struct {
	Address      string
	Password     string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Store struct {
	rdb    *redis.Client
	policy retry.Policy
	logger *zap.Logger
}

// New opens a client for one logical namespace (a dedicated Redis database).
func New(cfg Config, db int, policy retry.Policy, logger *zap.Logger) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           db,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	policy.Retryable = apperrors.IsRetryable
	return &Store{rdb: rdb, policy: policy, logger: logger}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// Get returns the value and whether the key exists. A missing key is not an
// error; expired and never-written keys are indistinguishable here.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var found bool

	err := retry.Do(ctx, s.policy, func() error {
		result, err := s.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			found = false
			return nil
		}
		if err != nil {
			return s.unavailable("get", key, err)
		}
		value = result
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

// Set writes the value with the given TTL.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return retry.Do(ctx, s.policy, func() error {
		if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
			return s.unavailable("set", key, err)
		}
		return nil
	})
}

// Delete removes the key. Deleting a missing key succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	return retry.Do(ctx, s.policy, func() error {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			return s.unavailable("delete", key, err)
		}
		return nil
	})
}

func (s *Store) unavailable(op, key string, err error) error {
	s.logger.Warn("ephemeral store call failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
	return apperrors.WrapError(apperrors.ErrStoreUnavailable, fmt.Errorf("%s %q: %w", op, key, err))
}
