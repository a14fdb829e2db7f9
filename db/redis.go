package db

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// RedisContributionStore counts contribution updates per address in redis,
// keyed as <prefix>:contributions:<address>. It is the injected replacement
// for an in-process counter map, so counts survive restarts and are shared
// across engine instances.
type RedisContributionStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisContributionStore(endpoint, password, prefix string) (*RedisContributionStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     endpoint,
		Password: password,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrapf(err, "error connecting to redis at %v", endpoint)
	}

	return &RedisContributionStore{rdb: rdb, prefix: prefix}, nil
}

func (s *RedisContributionStore) key(address string) string {
	return fmt.Sprintf("%s:contributions:%s", s.prefix, address)
}

// Count returns the contribution-update count for an address. An address
// never seen before counts zero.
func (s *RedisContributionStore) Count(ctx context.Context, address string) (uint64, error) {
	count, err := s.rdb.Get(ctx, s.key(address)).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "error reading contribution count for %v", address)
	}
	return count, nil
}

// Increment bumps the contribution-update count for an address.
func (s *RedisContributionStore) Increment(ctx context.Context, address string) error {
	if err := s.rdb.Incr(ctx, s.key(address)).Err(); err != nil {
		return errors.Wrapf(err, "error incrementing contribution count for %v", address)
	}
	return nil
}

func (s *RedisContributionStore) Close() error {
	return s.rdb.Close()
}
