package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajharbinger/pacman-arcade/internal/logger"
	"github.com/ajharbinger/pacman-arcade/internal/models"
)

func newTestCache(t *testing.T, ttl time.Duration) (*LeaderboardCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewLeaderboardCache(client, ttl, logger.NewNop()), mr
}

func generation(t *testing.T, c *LeaderboardCache) int64 {
	t.Helper()
	gen, ok := c.Generation(context.Background())
	require.True(t, ok)
	return gen
}

func sampleBoard() []models.ScoreRecord {
	return []models.ScoreRecord{
		{PlayerID: uuid.New(), Score: 300},
		{PlayerID: uuid.New(), Score: 200},
	}
}

func TestLeaderboardCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, 3)
	assert.False(t, ok, "empty cache misses")

	board := sampleBoard()
	c.Set(ctx, 3, generation(t, c), board)

	got, ok := c.Get(ctx, 3)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, board[0].PlayerID, got[0].PlayerID)
	assert.Equal(t, int64(300), got[0].Score)

	_, ok = c.Get(ctx, 5)
	assert.False(t, ok, "sizes are cached independently")
}

func TestLeaderboardCache_EmptyBoardIsCached(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, 3, generation(t, c), []models.ScoreRecord{})
	got, ok := c.Get(ctx, 3)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestLeaderboardCache_Invalidate(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, 3, generation(t, c), sampleBoard())
	c.Set(ctx, 10, generation(t, c), sampleBoard())
	assert.True(t, mr.Exists(DefaultKey))

	c.Invalidate(ctx)

	_, ok := c.Get(ctx, 3)
	assert.False(t, ok)
	_, ok = c.Get(ctx, 10)
	assert.False(t, ok)
}

func TestLeaderboardCache_StaleWriteAfterInvalidate(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	// A reader captures the generation and queries the store...
	before := generation(t, c)
	// ...a raise lands and invalidates...
	c.Invalidate(ctx)
	// ...and the reader's old board must not be written back.
	c.Set(ctx, 3, before, sampleBoard())

	_, ok := c.Get(ctx, 3)
	assert.False(t, ok, "board read before the invalidation is dropped")

	after := generation(t, c)
	assert.Equal(t, before+1, after)
	c.Set(ctx, 3, after, sampleBoard())
	_, ok = c.Get(ctx, 3)
	assert.True(t, ok, "boards read after the invalidation are cached")
}

func TestLeaderboardCache_Expires(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	c.Set(ctx, 3, generation(t, c), sampleBoard())
	mr.FastForward(31 * time.Second)

	_, ok := c.Get(ctx, 3)
	assert.False(t, ok)
}

func TestLeaderboardCache_CorruptEntryMisses(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	mr.HSet(DefaultKey, "3", "not json")

	_, ok := c.Get(context.Background(), 3)
	assert.False(t, ok)
}

func TestLeaderboardCache_RedisDownIsNotFatal(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	mr.Close()

	_, ok := c.Generation(ctx)
	assert.False(t, ok)
	c.Set(ctx, 3, 0, sampleBoard())
	c.Invalidate(ctx)
	_, ok = c.Get(ctx, 3)
	assert.False(t, ok)
	assert.Error(t, c.Ping(ctx))
}

func TestNewRedisClient_Errors(t *testing.T) {
	_, err := NewRedisClient("not a url")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient("redis://" + addr)
	assert.Error(t, err)
}
