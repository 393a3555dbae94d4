// Package summary caches generated board summaries in Redis so repeated
// renders of an unchanged board reuse the prior text. The cache key embeds a
// hash of the board content, so any data change produces a fresh summary.
package summary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// Generator produces a summary for the given board text. Implementations
// may call out to an external service; the cache shields them from repeat
// work.
type Generator func(ctx context.Context, board string) (string, error)

// Cache is a Redis-backed summary store.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCache wraps a Redis client. A non-positive ttl defaults to 3 days.
func NewCache(client redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 3 * 24 * time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

// Key derives the cache key for a board render. The content hash means a
// changed board never serves a stale summary.
func Key(boardName, board string) string {
	sum := sha1.Sum([]byte(board))
	return fmt.Sprintf("summary:%s:%s", boardName, hex.EncodeToString(sum[:8]))
}

// GetOrGenerate returns the cached summary for this exact board content, or
// runs gen and caches the result. Redis read errors degrade to generation;
// write errors are logged and the summary still returned.
func (c *Cache) GetOrGenerate(ctx context.Context, boardName, board string, gen Generator) (string, error) {
	key := Key(boardName, board)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		log.Debug().Str("key", key).Msg("summary cache hit")
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		log.Warn().Str("key", key).Err(err).Msg("summary cache read failed")
	}

	text, err := gen(ctx, board)
	if err != nil {
		return "", fmt.Errorf("generate summary %s: %w", boardName, err)
	}

	if err := c.client.Set(ctx, key, text, c.ttl).Err(); err != nil {
		log.Warn().Str("key", key).Err(err).Msg("summary cache write failed")
	}
	return text, nil
}

// Invalidate drops the cached summary for a board render.
func (c *Cache) Invalidate(ctx context.Context, boardName, board string) error {
	return c.client.Del(ctx, Key(boardName, board)).Err()
}
