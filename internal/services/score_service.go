package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/ajharbinger/pacman-arcade/internal/errors"
	"github.com/ajharbinger/pacman-arcade/internal/logger"
	"github.com/ajharbinger/pacman-arcade/internal/models"
	"github.com/ajharbinger/pacman-arcade/internal/repository"
	"github.com/ajharbinger/pacman-arcade/pkg/config"
)

// MissingScoreMessage is the reason given for any unusable score submission
const MissingScoreMessage = "Score was not found in the request"

// MaxLeaderboardSize bounds how many entries a leaderboard query may ask for
const MaxLeaderboardSize = config.MaxLeaderboardSize

// SubmitOutcome describes what an accepted submission did to the stored score
type SubmitOutcome int

const (
	// OutcomeCreated means the player had no record and one was created
	OutcomeCreated SubmitOutcome = iota
	// OutcomeRaised means the stored score was replaced by a higher one
	OutcomeRaised
	// OutcomeUnchanged means the submission did not beat the stored score
	OutcomeUnchanged
)

func (o SubmitOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeRaised:
		return "raised"
	default:
		return "unchanged"
	}
}

// SubmitResult is returned for every accepted submission
type SubmitResult struct {
	Outcome   SubmitOutcome
	HighScore int64
}

// scoreServiceImpl implements ScoreService
type scoreServiceImpl struct {
	repos       *repository.Repositories
	cache       LeaderboardCache
	defaultSize int
	log         logger.Logger
}

// NewScoreService creates a score service. cache may be nil.
func NewScoreService(repos *repository.Repositories, cache LeaderboardCache, defaultSize int, log logger.Logger) ScoreService {
	if defaultSize <= 0 {
		defaultSize = 3
	}
	if defaultSize > MaxLeaderboardSize {
		defaultSize = MaxLeaderboardSize
	}
	return &scoreServiceImpl{
		repos:       repos,
		cache:       cache,
		defaultSize: defaultSize,
		log:         log.With("component", "score_service"),
	}
}

// ParseScore converts a submitted value into a score. Integers arrive as JSON
// numbers or decimal strings; anything else, and anything below 1, is rejected.
func ParseScore(submitted interface{}) (int64, error) {
	var (
		score int64
		err   error
	)

	switch v := submitted.(type) {
	case nil:
		return 0, apperrors.InvalidInput(MissingScoreMessage, nil).WithDetails("score is missing")
	case json.Number:
		score, err = strconv.ParseInt(v.String(), 10, 64)
	case string:
		score, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v <= math.MinInt64 {
			return 0, apperrors.InvalidInput(MissingScoreMessage, nil).WithDetails("score is not an integer")
		}
		score = int64(v)
	case int:
		score = int64(v)
	case int64:
		score = v
	default:
		return 0, apperrors.InvalidInput(MissingScoreMessage, nil).WithDetails("score is not a number")
	}

	if err != nil {
		return 0, apperrors.InvalidInput(MissingScoreMessage, err).WithDetails("score is not an integer")
	}
	if score <= 0 {
		return 0, apperrors.InvalidInput(MissingScoreMessage, nil).WithDetails("score must be positive")
	}
	return score, nil
}

// GetHighScore returns the player's stored score or 0
func (s *scoreServiceImpl) GetHighScore(ctx context.Context, playerID uuid.UUID) (int64, error) {
	if playerID == uuid.Nil {
		return 0, apperrors.Unauthorized("authentication required", nil).WithOperation("GetHighScore")
	}

	record, err := s.repos.Score.Get(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		s.log.Error("failed to read high score", err, "player_id", playerID)
		return 0, apperrors.StoreUnavailable("failed to read high score", err).WithOperation("GetHighScore")
	}
	return record.Score, nil
}

// SubmitScore validates submitted and raises the player's best score if it is higher.
// A valid score that does not beat the stored one is accepted without effect.
func (s *scoreServiceImpl) SubmitScore(ctx context.Context, playerID uuid.UUID, submitted interface{}) (*SubmitResult, error) {
	if playerID == uuid.Nil {
		return nil, apperrors.Unauthorized("authentication required", nil).WithOperation("SubmitScore")
	}

	score, err := ParseScore(submitted)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{}
	err = s.repos.Tx.WithPlayerLock(ctx, playerID, func(tx *repository.Repositories) error {
		current, err := tx.Score.Get(ctx, playerID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			result.Outcome = OutcomeCreated
		case err != nil:
			return err
		case score > current.Score:
			result.Outcome = OutcomeRaised
		default:
			result.Outcome = OutcomeUnchanged
			result.HighScore = current.Score
			return nil
		}

		result.HighScore = score
		return tx.Score.Upsert(ctx, playerID, score)
	})
	if err != nil {
		s.log.Error("failed to submit score", err, "player_id", playerID, "score", score)
		return nil, apperrors.StoreUnavailable("failed to store high score", err).WithOperation("SubmitScore")
	}

	if result.Outcome != OutcomeUnchanged && s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	s.log.Debug("score submitted", "player_id", playerID, "score", score, "outcome", result.Outcome.String())
	return result, nil
}

// Leaderboard returns the n best scores, served from the cache when possible
func (s *scoreServiceImpl) Leaderboard(ctx context.Context, n int) ([]models.ScoreRecord, error) {
	if n <= 0 || n > MaxLeaderboardSize {
		return nil, apperrors.InvalidInput("invalid leaderboard size", nil).
			WithDetails("limit must be between 1 and " + strconv.Itoa(MaxLeaderboardSize)).
			WithOperation("Leaderboard")
	}

	var (
		generation int64
		cacheable  bool
	)
	if s.cache != nil {
		if records, ok := s.cache.Get(ctx, n); ok {
			return records, nil
		}
		generation, cacheable = s.cache.Generation(ctx)
	}

	records, err := s.repos.Score.Top(ctx, n)
	if err != nil {
		s.log.Error("failed to read leaderboard", err, "limit", n)
		return nil, apperrors.StoreUnavailable("failed to read leaderboard", err).WithOperation("Leaderboard")
	}

	if cacheable {
		s.cache.Set(ctx, n, generation, records)
	}
	return records, nil
}

// RankedLeaderboard resolves usernames for the leaderboard entries.
// Entries whose user no longer exists keep an empty username.
func (s *scoreServiceImpl) RankedLeaderboard(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	records, err := s.Leaderboard(ctx, n)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(records))
	for i, r := range records {
		ids[i] = r.PlayerID
	}

	users, err := s.repos.User.GetByIDs(ctx, ids)
	if err != nil {
		s.log.Error("failed to resolve leaderboard usernames", err)
		return nil, apperrors.StoreUnavailable("failed to read leaderboard", err).WithOperation("RankedLeaderboard")
	}

	entries := make([]models.LeaderboardEntry, len(records))
	for i, r := range records {
		entries[i] = models.LeaderboardEntry{
			Rank:     i + 1,
			PlayerID: r.PlayerID,
			Score:    r.Score,
		}
		if u, ok := users[r.PlayerID]; ok {
			entries[i].Username = u.Username
		}
	}
	return entries, nil
}

// Profile returns the player's own score and the default-size leaderboard.
// Nothing is persisted for players without a record.
func (s *scoreServiceImpl) Profile(ctx context.Context, playerID uuid.UUID) (*models.ProfileView, error) {
	if playerID == uuid.Nil {
		return nil, apperrors.Unauthorized("authentication required", nil).WithOperation("Profile")
	}

	user, err := s.repos.User.GetByID(ctx, playerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("account no longer exists", nil).WithOperation("Profile")
	}
	if err != nil {
		s.log.Error("failed to load player", err, "player_id", playerID)
		return nil, apperrors.StoreUnavailable("failed to load player", err).WithOperation("Profile")
	}

	score, err := s.GetHighScore(ctx, playerID)
	if err != nil {
		return nil, err
	}

	board, err := s.RankedLeaderboard(ctx, s.defaultSize)
	if err != nil {
		return nil, err
	}

	return &models.ProfileView{
		Username:   user.Username,
		Score:      score,
		HighScores: board,
	}, nil
}
