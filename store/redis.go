package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campushq/sessiond/services/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
	logger  *logging.Service
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

func NewRedisStore(opts RedisOptions, logger *logging.Service) *RedisStore {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if logger != nil {
		logger.Info("initialized redis session store",
			zap.String("addr", opts.Addr),
			zap.Int("db", opts.DB),
			zap.Duration("timeout", opts.Timeout))
	}

	return &RedisStore{
		client:  client,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", s.unavailable("GET", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return s.unavailable("SET", key, err)
	}
	return nil
}

// GetDel relies on redis GETDEL for the single-winner guarantee on
// refresh-token rotation.
func (s *RedisStore) GetDel(ctx context.Context, key string) (string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	val, err := s.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", s.unavailable("GETDEL", key, err)
	}
	return val, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return s.unavailable("DEL", key, err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, s.unavailable("EXISTS", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) SAdd(ctx context.Context, key, member string, ttl time.Duration) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, member)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return s.unavailable("SADD", key, err)
	}
	return nil
}

func (s *RedisStore) SRem(ctx context.Context, key, member string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.SRem(ctx, key, member).Err(); err != nil {
		return s.unavailable("SREM", key, err)
	}
	return nil
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, s.unavailable("SMEMBERS", key, err)
	}
	return members, nil
}

func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, s.unavailable("SCAN", pattern, err)
	}
	return keys, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// A timed-out call is indistinguishable from an unreachable store; both are
// surfaced as ErrStoreUnavailable so callers fail closed instead of retrying.
func (s *RedisStore) unavailable(op, key string, err error) error {
	if s.logger != nil {
		s.logger.Error("redis operation failed",
			zap.String("op", op),
			zap.String("key", key),
			zap.Error(err))
	}
	return fmt.Errorf("%w: %s %s: %v", ErrStoreUnavailable, op, key, err)
}
