package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/swifttransit/booking-core/internal/config"
)

// compareAndDeleteScript deletes a key only when it still holds the
// expected value. Running it server-side keeps the check-and-delete
// atomic, which lock release correctness depends on.
var compareAndDeleteScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// NewRedisClient instantiates a Redis client from configuration. The
// returned client may be nil if a connection cannot be established;
// callers should fall back to a degraded store rather than failing
// startup.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

// RedisStore implements Store on top of a Redis client
type RedisStore struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisStore returns a Store backed by the given Redis client
func NewRedisStore(client *redis.Client, logger *logrus.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

// Get returns the value for key and whether it was present
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).WithField("key", key).Warn("cache get failed")
		}
		return "", false
	}
	return val, true
}

// Set stores value under key with the given TTL
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache set failed")
		return false
	}
	return true
}

// SetNX stores value only if key is absent, atomically with the TTL
func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) bool {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache setnx failed")
		return false
	}
	return ok
}

// Delete removes key
func (s *RedisStore) Delete(ctx context.Context, key string) bool {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache delete failed")
		return false
	}
	return n > 0
}

// Exists reports whether key is present
func (s *RedisStore) Exists(ctx context.Context, key string) bool {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache exists failed")
		return false
	}
	return n > 0
}

// Increment atomically increments the counter at key
func (s *RedisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, bool) {
	val, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache increment failed")
		return 0, false
	}
	if val == 1 && ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("cache expire failed")
		}
	}
	return val, true
}

// CompareAndDelete removes key only if its current value equals expected
func (s *RedisStore) CompareAndDelete(ctx context.Context, key, expected string) bool {
	res, err := compareAndDeleteScript.Run(ctx, s.client, []string{key}, expected).Int64()
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache compare-and-delete failed")
		return false
	}
	return res > 0
}
