package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
)

// RedisProfileRepository keeps durable profile entries in Redis so several
// portal processes can share one profile. Writes are last-write-wins.
type RedisProfileRepository struct {
	client    *redis.Client
	profileID string
	logger    *zap.Logger
}

// NewRedisProfileRepository constructs the repository.
func NewRedisProfileRepository(client *redis.Client, profileID string, logger *zap.Logger) *RedisProfileRepository {
	if profileID == "" {
		profileID = "default"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisProfileRepository{client: client, profileID: profileID, logger: logger}
}

func (r *RedisProfileRepository) key(entry string) string {
	return fmt.Sprintf("portal:profile:%s:%s", r.profileID, entry)
}

// Get returns the raw value stored under key or ErrStateNotFound.
func (r *RedisProfileRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, appErrors.ErrStateNotFound
	}
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrStateNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// Set stores value without expiry; durable entries live until removed.
func (r *RedisProfileRepository) Set(ctx context.Context, key string, value []byte) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *RedisProfileRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *RedisProfileRepository) Close() error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Close(); err != nil {
		r.logger.Warn("close redis profile store", zap.Error(err))
		return err
	}
	return nil
}
