// Package redis keeps warn counters in Redis so that several bot processes
// moderating the same groups agree on them.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"guardBot/internal/domain"
)

var warnPrefix = "guardbot/warn/"

type WarnStore struct {
	Client *redis.Client
}

var _ domain.WarnStore = (*WarnStore)(nil)

func NewWarnStore(ctx context.Context, redisURL string) (*WarnStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &WarnStore{Client: rdb}, nil
}

func (s *WarnStore) WarnCount(ctx context.Context, userID string) (int, error) {
	c, err := s.Client.Get(ctx, warnPrefix+userID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("redis: warn count: %w", err)
	}
	return c, nil
}

func (s *WarnStore) IncrementWarn(ctx context.Context, userID string) error {
	if err := s.Client.Incr(ctx, warnPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis: increment warn: %w", err)
	}
	return nil
}

func (s *WarnStore) ResetWarn(ctx context.Context, userID string) error {
	if err := s.Client.Del(ctx, warnPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis: reset warn: %w", err)
	}
	return nil
}

func (s *WarnStore) Close() error {
	return s.Client.Close()
}

// Storage serves warn counters from Redis and everything else from the
// wrapped backend.
type Storage struct {
	domain.Storage
	warns *WarnStore
}

var _ domain.Storage = (*Storage)(nil)

func WithWarns(base domain.Storage, warns *WarnStore) *Storage {
	return &Storage{Storage: base, warns: warns}
}

func (s *Storage) WarnCount(ctx context.Context, userID string) (int, error) {
	return s.warns.WarnCount(ctx, userID)
}

func (s *Storage) IncrementWarn(ctx context.Context, userID string) error {
	return s.warns.IncrementWarn(ctx, userID)
}

func (s *Storage) ResetWarn(ctx context.Context, userID string) error {
	return s.warns.ResetWarn(ctx, userID)
}

func (s *Storage) Close() error {
	return errors.Join(s.warns.Close(), s.Storage.Close())
}
