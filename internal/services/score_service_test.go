package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ajharbinger/pacman-arcade/internal/errors"
	"github.com/ajharbinger/pacman-arcade/internal/logger"
	"github.com/ajharbinger/pacman-arcade/internal/models"
	"github.com/ajharbinger/pacman-arcade/internal/repository"
)

// fakeCache records calls and serves whatever was last Set
type fakeCache struct {
	mu          sync.Mutex
	entries     map[int][]models.ScoreRecord
	generation  int64
	invalidated int
	pingErr     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[int][]models.ScoreRecord)}
}

func (f *fakeCache) Get(ctx context.Context, n int) ([]models.ScoreRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.entries[n]
	return r, ok
}

func (f *fakeCache) Generation(ctx context.Context) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation, true
}

func (f *fakeCache) Set(ctx context.Context, n int, generation int64, records []models.ScoreRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if generation != f.generation {
		return
	}
	f.entries[n] = records
}

func (f *fakeCache) Invalidate(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[int][]models.ScoreRecord)
	f.generation++
	f.invalidated++
}

func (f *fakeCache) Ping(ctx context.Context) error {
	return f.pingErr
}

func newTestScoreService(cache LeaderboardCache) (ScoreService, *repository.MemoryStore, *repository.Repositories) {
	store := repository.NewMemoryStore()
	repos := repository.NewMemoryRepositories(store)
	return NewScoreService(repos, cache, 3, logger.NewNop()), store, repos
}

func addPlayer(t *testing.T, repos *repository.Repositories, name string) uuid.UUID {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "x"}
	require.NoError(t, repos.User.Create(context.Background(), u))
	return u.ID
}

func TestGetHighScore_FreshPlayerIsZero(t *testing.T) {
	svc, _, _ := newTestScoreService(nil)

	score, err := svc.GetHighScore(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), score)
}

func TestGetHighScore_RequiresIdentity(t *testing.T) {
	svc, _, _ := newTestScoreService(nil)

	_, err := svc.GetHighScore(context.Background(), uuid.Nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUnauthorized))
}

func TestSubmitScore_Sequences(t *testing.T) {
	tests := []struct {
		name         string
		submissions  []interface{}
		wantOutcomes []SubmitOutcome
		wantStored   int64
	}{
		{
			name:         "increasing scores raise",
			submissions:  []interface{}{10, 20},
			wantOutcomes: []SubmitOutcome{OutcomeCreated, OutcomeRaised},
			wantStored:   20,
		},
		{
			name:         "lower score is an accepted no-op",
			submissions:  []interface{}{20, 10},
			wantOutcomes: []SubmitOutcome{OutcomeCreated, OutcomeUnchanged},
			wantStored:   20,
		},
		{
			name:         "equal score is an accepted no-op",
			submissions:  []interface{}{20, 20},
			wantOutcomes: []SubmitOutcome{OutcomeCreated, OutcomeUnchanged},
			wantStored:   20,
		},
		{
			name:         "minimum valid score creates a record",
			submissions:  []interface{}{1},
			wantOutcomes: []SubmitOutcome{OutcomeCreated},
			wantStored:   1,
		},
		{
			name:         "mixed encodings",
			submissions:  []interface{}{json.Number("100"), "150", float64(120), int64(151)},
			wantOutcomes: []SubmitOutcome{OutcomeCreated, OutcomeRaised, OutcomeUnchanged, OutcomeRaised},
			wantStored:   151,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestScoreService(nil)
			ctx := context.Background()
			player := uuid.New()

			for i, s := range tt.submissions {
				result, err := svc.SubmitScore(ctx, player, s)
				require.NoError(t, err)
				assert.Equal(t, tt.wantOutcomes[i], result.Outcome, "submission %d", i)
			}

			stored, err := svc.GetHighScore(ctx, player)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStored, stored)
		})
	}
}

func TestSubmitScore_InvalidInputLeavesScoreUnchanged(t *testing.T) {
	invalid := []struct {
		name  string
		value interface{}
	}{
		{"missing", nil},
		{"non-numeric string", "abc"},
		{"empty string", ""},
		{"zero", 0},
		{"zero string", "0"},
		{"negative", -5},
		{"negative number", json.Number("-5")},
		{"fractional", float64(12.5)},
		{"fractional number", json.Number("12.5")},
		{"boolean", true},
		{"object", map[string]interface{}{"score": 1}},
		{"overflow", json.Number("99999999999999999999")},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestScoreService(nil)
			ctx := context.Background()
			player := uuid.New()

			_, err := svc.SubmitScore(ctx, player, 42)
			require.NoError(t, err)

			result, err := svc.SubmitScore(ctx, player, tt.value)
			assert.Nil(t, result)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidInput), "got %v", err)

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, MissingScoreMessage, appErr.Message)

			stored, err := svc.GetHighScore(ctx, player)
			require.NoError(t, err)
			assert.Equal(t, int64(42), stored)
		})
	}
}

func TestSubmitScore_InvalidInputCreatesNothing(t *testing.T) {
	svc, _, repos := newTestScoreService(nil)
	ctx := context.Background()
	player := uuid.New()

	_, err := svc.SubmitScore(ctx, player, "0")
	require.Error(t, err)

	_, err = repos.Score.Get(ctx, player)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubmitScore_ConcurrentSubmissionsKeepMaximum(t *testing.T) {
	for round := 0; round < 20; round++ {
		svc, _, _ := newTestScoreService(nil)
		ctx := context.Background()
		player := uuid.New()

		var wg sync.WaitGroup
		start := make(chan struct{})
		for _, s := range []int{50, 70} {
			wg.Add(1)
			go func(s int) {
				defer wg.Done()
				<-start
				_, err := svc.SubmitScore(ctx, player, s)
				assert.NoError(t, err)
			}(s)
		}
		close(start)
		wg.Wait()

		stored, err := svc.GetHighScore(ctx, player)
		require.NoError(t, err)
		require.Equal(t, int64(70), stored, "round %d", round)
	}
}

func TestSubmitScore_ManyConcurrentPlayers(t *testing.T) {
	svc, _, _ := newTestScoreService(nil)
	ctx := context.Background()
	players := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	var wg sync.WaitGroup
	for _, p := range players {
		for s := 1; s <= 50; s++ {
			wg.Add(1)
			go func(p uuid.UUID, s int) {
				defer wg.Done()
				_, err := svc.SubmitScore(ctx, p, s)
				assert.NoError(t, err)
			}(p, s)
		}
	}
	wg.Wait()

	for _, p := range players {
		stored, err := svc.GetHighScore(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, int64(50), stored)
	}
}

func TestSubmitScore_StoreFailure(t *testing.T) {
	svc, store, _ := newTestScoreService(nil)
	store.SetFailure(errors.New("connection reset"))

	_, err := svc.SubmitScore(context.Background(), uuid.New(), 10)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeStoreUnavailable))

	_, err = svc.GetHighScore(context.Background(), uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeStoreUnavailable))
}

func TestLeaderboard(t *testing.T) {
	svc, _, repos := newTestScoreService(nil)
	ctx := context.Background()

	board, err := svc.Leaderboard(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, board, "no records, no entries")

	a := addPlayer(t, repos, "blinky")
	b := addPlayer(t, repos, "pinky")
	_, err = svc.SubmitScore(ctx, a, 100)
	require.NoError(t, err)
	_, err = svc.SubmitScore(ctx, b, 300)
	require.NoError(t, err)

	board, err = svc.Leaderboard(ctx, 3)
	require.NoError(t, err)
	require.Len(t, board, 2, "never more entries than players with records")
	assert.Equal(t, b, board[0].PlayerID)
	assert.Equal(t, a, board[1].PlayerID)

	c := addPlayer(t, repos, "inky")
	d := addPlayer(t, repos, "clyde")
	for p, s := range map[uuid.UUID]int{c: 200, d: 50} {
		_, err = svc.SubmitScore(ctx, p, s)
		require.NoError(t, err)
	}

	board, err = svc.Leaderboard(ctx, 3)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, []int64{300, 200, 100}, []int64{board[0].Score, board[1].Score, board[2].Score})

	ranked, err := svc.RankedLeaderboard(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "pinky", ranked[0].Username)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "inky", ranked[1].Username)
	assert.Equal(t, 3, ranked[2].Rank)
}

func TestLeaderboard_InvalidSize(t *testing.T) {
	svc, _, _ := newTestScoreService(nil)

	for _, n := range []int{0, -1, MaxLeaderboardSize + 1} {
		_, err := svc.Leaderboard(context.Background(), n)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodeInvalidInput), "n=%d", n)
	}
}

func TestLeaderboard_UsesAndInvalidatesCache(t *testing.T) {
	cache := newFakeCache()
	svc, store, _ := newTestScoreService(cache)
	ctx := context.Background()
	player := uuid.New()

	_, err := svc.SubmitScore(ctx, player, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)

	board, err := svc.Leaderboard(ctx, 3)
	require.NoError(t, err)
	require.Len(t, board, 1)

	// Served from cache even when the store is down
	store.SetFailure(errors.New("down"))
	cached, err := svc.Leaderboard(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, board, cached)
	store.SetFailure(nil)

	// A no-op submission leaves the cache alone
	_, err = svc.SubmitScore(ctx, player, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)

	// A raise invalidates it
	_, err = svc.SubmitScore(ctx, player, 15)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.invalidated)

	board, err = svc.Leaderboard(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(15), board[0].Score)
}

// pausingScores holds the first Top call after it has read from the store
// until release is closed
type pausingScores struct {
	repository.ScoreRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (p *pausingScores) Top(ctx context.Context, n int) ([]models.ScoreRecord, error) {
	records, err := p.ScoreRepository.Top(ctx, n)
	p.once.Do(func() {
		close(p.read)
		<-p.release
	})
	return records, err
}

func TestLeaderboard_RaiseDuringCacheFill(t *testing.T) {
	store := repository.NewMemoryStore()
	repos := repository.NewMemoryRepositories(store)
	paused := &pausingScores{
		ScoreRepository: repos.Score,
		read:            make(chan struct{}),
		release:         make(chan struct{}),
	}
	repos.Score = paused
	cache := newFakeCache()
	svc := NewScoreService(repos, cache, 3, logger.NewNop())
	ctx := context.Background()
	player := addPlayer(t, repos, "pacman")

	done := make(chan error, 1)
	go func() {
		_, err := svc.Leaderboard(ctx, 3)
		done <- err
	}()

	// The reader has the empty board in hand when the raise commits
	<-paused.read
	_, err := svc.SubmitScore(ctx, player, 100)
	require.NoError(t, err)
	close(paused.release)
	require.NoError(t, <-done)

	board, err := svc.Leaderboard(ctx, 3)
	require.NoError(t, err)
	require.Len(t, board, 1, "the board read before the raise must not be cached")
	assert.Equal(t, int64(100), board[0].Score)
}

func TestProfile(t *testing.T) {
	svc, _, repos := newTestScoreService(nil)
	ctx := context.Background()

	viewer := addPlayer(t, repos, "viewer")
	profile, err := svc.Profile(ctx, viewer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), profile.Score)
	assert.Empty(t, profile.HighScores)

	_, err = repos.Score.Get(ctx, viewer)
	assert.ErrorIs(t, err, repository.ErrNotFound, "viewing a profile persists nothing")

	for i, name := range []string{"a", "b", "c", "d"} {
		id := addPlayer(t, repos, name)
		_, err := svc.SubmitScore(ctx, id, (i+1)*100)
		require.NoError(t, err)
	}
	_, err = svc.SubmitScore(ctx, viewer, 250)
	require.NoError(t, err)

	profile, err = svc.Profile(ctx, viewer)
	require.NoError(t, err)
	assert.Equal(t, "viewer", profile.Username)
	assert.Equal(t, int64(250), profile.Score)
	require.Len(t, profile.HighScores, 3)
	assert.Equal(t, "d", profile.HighScores[0].Username)
}

func TestProfile_UnknownPlayer(t *testing.T) {
	svc, store, _ := newTestScoreService(nil)
	ctx := context.Background()

	_, err := svc.Profile(ctx, uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUnauthorized), "a session for a missing account is rejected")

	_, err = svc.Profile(ctx, uuid.Nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUnauthorized))

	store.SetFailure(errors.New("down"))
	_, err = svc.Profile(ctx, uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeStoreUnavailable))
}

func TestParseScore(t *testing.T) {
	score, err := ParseScore(" 77 ")
	require.NoError(t, err)
	assert.Equal(t, int64(77), score)

	score, err = ParseScore(float64(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), score)

	_, err = ParseScore(float64(1e19))
	assert.Error(t, err)
}
