// Package cache holds the Redis read-through cache for leaderboard queries.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ajharbinger/pacman-arcade/internal/logger"
	"github.com/ajharbinger/pacman-arcade/internal/models"
)

// DefaultKey is the Redis hash holding cached leaderboards, one field per size
const DefaultKey = "pacman:leaderboard"

// generationSuffix names the counter Invalidate bumps
const generationSuffix = ":gen"

// LeaderboardCache caches top-N queries. All leaderboard sizes share one
// hash so a single DEL invalidates every size. A generation counter guards
// writes: a board read from the store before an invalidation is never
// written back after it.
type LeaderboardCache struct {
	client *redis.Client
	key    string
	genKey string
	ttl    time.Duration
	log    logger.Logger
}

// NewLeaderboardCache creates a cache backed by client
func NewLeaderboardCache(client *redis.Client, ttl time.Duration, log logger.Logger) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		key:    DefaultKey,
		genKey: DefaultKey + generationSuffix,
		ttl:    ttl,
		log:    log.With("component", "leaderboard_cache"),
	}
}

// Get returns the cached leaderboard of size n.
// Any miss, Redis error or decode error reports false.
func (c *LeaderboardCache) Get(ctx context.Context, n int) ([]models.ScoreRecord, bool) {
	data, err := c.client.HGet(ctx, c.key, strconv.Itoa(n)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("leaderboard cache read failed", "error", err)
		}
		return nil, false
	}

	var records []models.ScoreRecord
	if err := json.Unmarshal(data, &records); err != nil {
		c.log.Warn("leaderboard cache decode failed", "error", err)
		return nil, false
	}
	return records, true
}

// Generation returns the current invalidation generation. Callers read it
// before querying the store and hand it back to Set.
func (c *LeaderboardCache) Generation(ctx context.Context) (int64, bool) {
	gen, err := c.client.Get(ctx, c.genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.log.Warn("leaderboard cache generation read failed", "error", err)
		return 0, false
	}
	return gen, true
}

// Set stores the leaderboard of size n unless the cache was invalidated
// since generation was read. Errors are logged, a failed cache write never
// fails the caller.
func (c *LeaderboardCache) Set(ctx context.Context, n int, generation int64, records []models.ScoreRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		c.log.Warn("leaderboard cache encode failed", "error", err)
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, c.genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, c.key, strconv.Itoa(n), data)
			pipe.Expire(ctx, c.key, c.ttl)
			return nil
		})
		return err
	}, c.genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("stale leaderboard not cached", "limit", n)
	default:
		c.log.Warn("leaderboard cache write failed", "error", err)
	}
}

var errStale = errors.New("leaderboard generation changed")

// Invalidate drops every cached leaderboard and bumps the generation
func (c *LeaderboardCache) Invalidate(ctx context.Context) {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, c.genKey)
	pipe.Del(ctx, c.key)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("leaderboard cache invalidate failed", "error", err)
	}
}

// Ping checks that Redis is reachable
func (c *LeaderboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
