package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/config"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// RevocationStore is the durable token blacklist behind the cache
type RevocationStore interface {
	RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// CachedRevocationStore writes through to the database and answers revocation
// checks from Redis first. A Redis miss or failure falls back to the database,
// so the cache can only speed up a check, never change its result.
type CachedRevocationStore struct {
	store  RevocationStore
	rdb    *redis.Client
	logger *slog.Logger
}

func NewCachedRevocationStore(store RevocationStore, rdb *redis.Client, logger *slog.Logger) *CachedRevocationStore {
	return &CachedRevocationStore{store: store, rdb: rdb, logger: logger}
}

// NewRedisClient connects and pings; callers treat an error as "run without cache"
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (c *CachedRevocationStore) RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error {
	if err := c.store.RevokeToken(ctx, jti, userID, tokenType, expiresAt, reason); err != nil {
		return err
	}

	if ttl := time.Until(expiresAt); ttl > 0 {
		if err := c.rdb.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err(); err != nil {
			c.logger.Warn("revocation cache write failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (c *CachedRevocationStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	if err != nil {
		c.logger.Warn("revocation cache read failed", slog.String("error", err.Error()))
	}
	return c.store.IsTokenRevoked(ctx, jti)
}
