package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/ajharbinger/pacman-arcade/internal/logger"
	"github.com/ajharbinger/pacman-arcade/internal/models"
	"github.com/ajharbinger/pacman-arcade/internal/repository"
	"github.com/ajharbinger/pacman-arcade/pkg/config"
)

// Services contains all application services
type Services struct {
	Score  ScoreService
	Auth   AuthService
	Health HealthService
}

// ScoreService defines the high-score rules
type ScoreService interface {
	// GetHighScore returns the player's best score, 0 when none is stored
	GetHighScore(ctx context.Context, playerID uuid.UUID) (int64, error)
	// SubmitScore records submitted if it beats the player's best
	SubmitScore(ctx context.Context, playerID uuid.UUID, submitted interface{}) (*SubmitResult, error)
	// Leaderboard returns the n best scores across all players
	Leaderboard(ctx context.Context, n int) ([]models.ScoreRecord, error)
	// RankedLeaderboard is Leaderboard with ranks and usernames attached
	RankedLeaderboard(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
	// Profile assembles the data shown on a player's profile page
	Profile(ctx context.Context, playerID uuid.UUID) (*models.ProfileView, error)
}

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Login(ctx context.Context, req models.LoginRequest) (*Session, error)
	Register(ctx context.Context, req models.RegisterRequest) (*Session, error)
}

// HealthService checks the backing services
type HealthService interface {
	Check(ctx context.Context) (map[string]string, error)
}

// LeaderboardCache is an optional read-through cache for leaderboard queries.
// Set only stores records read under the generation passed in, so a board
// read before an Invalidate is never written back after it.
type LeaderboardCache interface {
	Get(ctx context.Context, n int) ([]models.ScoreRecord, bool)
	Generation(ctx context.Context) (int64, bool)
	Set(ctx context.Context, n int, generation int64, records []models.ScoreRecord)
	Invalidate(ctx context.Context)
	Ping(ctx context.Context) error
}

// NewServices creates a new Services instance with all dependencies.
// cache may be nil.
func NewServices(repos *repository.Repositories, cfg *config.Config, cache LeaderboardCache, log logger.Logger) *Services {
	return &Services{
		Score:  NewScoreService(repos, cache, cfg.LeaderboardSize, log),
		Auth:   NewAuthService(repos, cfg.JWTSecret, log),
		Health: newHealthService(repos, cache),
	}
}
