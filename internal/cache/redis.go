package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const redisTimeout = 5 * time.Second

// redisStore backs the cache with a redis instance, for deployments
// where several client processes on one host share state. Entries never
// expire; the stores own their lifecycle.
type redisStore struct {
	rdb *redis.Client
	log *zap.Logger
}

// NewRedis connects to the instance named by url (redis:// form).
func NewRedis(url string, log *zap.Logger) (Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redisStore{rdb: rdb, log: log}, nil
}

func (s *redisStore) Get(key string, out interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.log.Warn("cache entry is not valid JSON", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

func (s *redisStore) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("cache write skipped", zap.String("key", key), zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *redisStore) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		s.log.Warn("cache remove failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.rdb.Close()
}
