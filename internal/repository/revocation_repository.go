package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/wbs-api/pkg/revocation"
)

const revokedKeyPrefix = "revoked:"

// RedisRevocationRepository stores revoked access tokens in Redis, letting the
// server expire each key with the token's own lifetime. Tokens are hashed
// before they become keys.
type RedisRevocationRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRevocationRepository constructs a Redis backed revocation store.
func NewRedisRevocationRepository(client *redis.Client, logger *zap.Logger) *RedisRevocationRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRevocationRepository{client: client, logger: logger}
}

// Add stores token for ttl, replacing any previous expiry.
func (r *RedisRevocationRepository) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return r.Remove(ctx, token)
	}
	key := revokedKey(token)
	if err := r.client.Set(ctx, key, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Remove deletes token if present.
func (r *RedisRevocationRepository) Remove(ctx context.Context, token string) error {
	key := revokedKey(token)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Contains reports whether token is currently revoked.
func (r *RedisRevocationRepository) Contains(ctx context.Context, token string) (bool, error) {
	key := revokedKey(token)
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Close releases the underlying Redis connection if present.
func (r *RedisRevocationRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedKeyPrefix + hex.EncodeToString(sum[:])
}

// MemoryRevocationRepository adapts the in-process registry to the store
// contract used by the revocation service.
type MemoryRevocationRepository struct {
	registry *revocation.Registry
	now      func() time.Time
}

// NewMemoryRevocationRepository wraps registry.
func NewMemoryRevocationRepository(registry *revocation.Registry) *MemoryRevocationRepository {
	return &MemoryRevocationRepository{registry: registry, now: time.Now}
}

// Add stores token until now+ttl.
func (r *MemoryRevocationRepository) Add(_ context.Context, token string, ttl time.Duration) error {
	r.registry.Add(token, r.now().Add(ttl))
	return nil
}

// Remove deletes token if present.
func (r *MemoryRevocationRepository) Remove(_ context.Context, token string) error {
	r.registry.Remove(token)
	return nil
}

// Contains reports whether token is present and unexpired.
func (r *MemoryRevocationRepository) Contains(_ context.Context, token string) (bool, error) {
	return r.registry.Contains(token), nil
}
