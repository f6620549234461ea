// Package cache memoizes requirement extraction results in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"apisense/internal/common/logger"
	"apisense/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "apisense:requirements:"

// RequirementCache stores RequirementSets keyed by prompt variant and input
// text. A nil *RequirementCache is valid and caches nothing.
type RequirementCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRequirementCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RequirementCache {
	return &RequirementCache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "requirement-cache"}),
	}
}

// Key derives the cache key. variant separates prompt flavours so the file
// and description prompts never share entries.
func Key(variant, text string) string {
	sum := sha256.Sum256([]byte(variant + "\x00" + text))
	return keyPrefix + variant + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached set and true on a hit. Misses and Redis failures
// both read as a miss; failures are logged.
func (c *RequirementCache) Get(ctx context.Context, variant, text string) (*models.RequirementSet, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	val, err := c.client.Get(ctx, Key(variant, text)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("requirement cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}

	var reqs models.RequirementSet
	if err := json.Unmarshal([]byte(val), &reqs); err != nil {
		c.logger.Warn("requirement cache entry corrupt", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	return &reqs, true
}

// Set stores reqs. Failures are logged and otherwise ignored.
func (c *RequirementCache) Set(ctx context.Context, variant, text string, reqs *models.RequirementSet) {
	if c == nil || c.client == nil || reqs == nil {
		return
	}

	data, err := json.Marshal(reqs)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, Key(variant, text), data, c.ttl).Err(); err != nil {
		c.logger.Warn("requirement cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
