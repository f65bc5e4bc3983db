// Package cache holds a short-TTL Redis cache for user projections.
// Cache failures degrade to store reads and are never surfaced to the
// caller.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/marketloom/user-api/internal/metrics"
	"github.com/marketloom/user-api/internal/models"
)

// DefaultTTL bounds how stale a cached projection can get.
const DefaultTTL = 60 * time.Second

// UserCache caches user records by id. A nil *UserCache is a valid
// no-op cache, so handlers need no enabled/disabled branching.
type UserCache struct {
	redisClient redis.UniversalClient
	ttl         time.Duration
	logger      *logrus.Logger
}

// New creates a user cache on the given Redis client. A zero ttl falls
// back to DefaultTTL.
func New(redisClient redis.UniversalClient, ttl time.Duration, logger *logrus.Logger) *UserCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &UserCache{
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

func userKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

// cacheEntry restores the password hash field that the User JSON tags
// deliberately drop. The cache sits on the same trust boundary as the
// store; API projections are produced by the handlers, not here.
type cacheEntry struct {
	models.User
	PasswordHash string `json:"password_hash"`
}

// Get returns the cached record for id, or nil on miss or cache failure.
func (c *UserCache) Get(ctx context.Context, id string) *models.User {
	if c == nil {
		return nil
	}

	data, err := c.redisClient.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheOperation("get", "miss")
		} else {
			metrics.RecordCacheOperation("get", "failure")
			c.logger.WithError(err).WithField("user_id", id).Warn("User cache read failed")
		}
		return nil
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		metrics.RecordCacheOperation("get", "failure")
		c.logger.WithError(err).WithField("user_id", id).Warn("User cache entry corrupt, dropping")
		c.redisClient.Del(ctx, userKey(id))
		return nil
	}

	metrics.RecordCacheOperation("get", "hit")
	user := entry.User
	user.PasswordHash = entry.PasswordHash
	return &user
}

// Set stores the record under its id with the configured TTL.
func (c *UserCache) Set(ctx context.Context, user *models.User) {
	if c == nil || user == nil {
		return
	}

	data, err := json.Marshal(cacheEntry{User: *user, PasswordHash: user.PasswordHash})
	if err != nil {
		metrics.RecordCacheOperation("set", "failure")
		c.logger.WithError(err).WithField("user_id", user.UserID).Warn("User cache marshal failed")
		return
	}

	if err := c.redisClient.Set(ctx, userKey(user.UserID), data, c.ttl).Err(); err != nil {
		metrics.RecordCacheOperation("set", "failure")
		c.logger.WithError(err).WithField("user_id", user.UserID).Warn("User cache write failed")
		return
	}
	metrics.RecordCacheOperation("set", "success")
}

// Invalidate drops the cached record for id. Called after updates and
// deletes so reads never serve a projection older than the TTL allows.
func (c *UserCache) Invalidate(ctx context.Context, id string) {
	if c == nil {
		return
	}

	if err := c.redisClient.Del(ctx, userKey(id)).Err(); err != nil {
		metrics.RecordCacheOperation("del", "failure")
		c.logger.WithError(err).WithField("user_id", id).Warn("User cache invalidation failed")
		return
	}
	metrics.RecordCacheOperation("del", "success")
}
