package redisstate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"room-designer/internal/repository"
)

// RedisStateRepository is the Redis implementation of StateRepository.
type RedisStateRepository struct {
	client    redis.Cmdable
	keyPrefix string
	// ttl of the state blob, 0 keeps it forever
	ttl time.Duration
}

// NewRedisStateRepository creates a RedisStateRepository.
func NewRedisStateRepository(client redis.Cmdable, keyPrefix string, ttl time.Duration) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "rd:" // room-designer
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// --- Key Generation Helpers ---
func (r *RedisStateRepository) stateKey(userID uint) string {
	return fmt.Sprintf("%sfurniture-design-storage:%d", r.keyPrefix, userID)
}

func (r *RedisStateRepository) dirtySetKey() string {
	return fmt.Sprintf("%sstate:dirty", r.keyPrefix)
}

// GetState returns the raw blob of a user.
func (r *RedisStateRepository) GetState(ctx context.Context, userID uint) ([]byte, error) {
	key := r.stateKey(userID)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrStateNotFound
		}
		return nil, fmt.Errorf("redis: failed to get state for user %d from %s: %w", userID, key, err)
	}
	return data, nil
}

// SetState overwrites the blob and adds the user to the dirty set in one round trip.
func (r *RedisStateRepository) SetState(ctx context.Context, userID uint, data []byte) error {
	key := r.stateKey(userID)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, r.ttl)
	pipe.SAdd(ctx, r.dirtySetKey(), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to set state for user %d on key %s: %w", userID, key, err)
	}
	return nil
}

// DeleteState removes the blob and any pending dirty mark.
func (r *RedisStateRepository) DeleteState(ctx context.Context, userID uint) error {
	key := r.stateKey(userID)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, r.dirtySetKey(), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to delete state for user %d on key %s: %w", userID, key, err)
	}
	return nil
}

// PopDirtyUsers pops up to max members of the dirty set.
func (r *RedisStateRepository) PopDirtyUsers(ctx context.Context, max int64) ([]uint, error) {
	if max <= 0 {
		max = 100
	}
	key := r.dirtySetKey()
	members, err := r.client.SPopN(ctx, key, max).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: failed to pop dirty users from %s: %w", key, err)
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, parseErr := strconv.ParseUint(m, 10, 64)
		if parseErr != nil {
			logrus.Warnf("redis: skipping malformed dirty member '%s' in %s", m, key)
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// MarkDirty adds users to the dirty set.
func (r *RedisStateRepository) MarkDirty(ctx context.Context, userIDs ...uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		members[i] = id
	}
	if err := r.client.SAdd(ctx, r.dirtySetKey(), members...).Err(); err != nil {
		return fmt.Errorf("redis: failed to mark %d users dirty: %w", len(userIDs), err)
	}
	return nil
}

// CheckRateLimit counts a hit on key and reports whether the count exceeds limit.
func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", key, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to get incr result for rate limit on key %s: %w", key, err)
	}
	return count > int64(limit), nil
}
