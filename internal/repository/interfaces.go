package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ajharbinger/pacman-arcade/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint
	ErrConflict = errors.New("already exists")
)

// ScoreRepository stores one best score per player
type ScoreRepository interface {
	// Get returns the player's record or ErrNotFound
	Get(ctx context.Context, playerID uuid.UUID) (*models.ScoreRecord, error)
	// Upsert creates the record or overwrites its score
	Upsert(ctx context.Context, playerID uuid.UUID, score int64) error
	// Top returns the n highest scores, descending, ties by player id ascending
	Top(ctx context.Context, n int) ([]models.ScoreRecord, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// TransactionManager runs units of work against the store
type TransactionManager interface {
	// WithPlayerLock runs fn while holding an exclusive lock on the player's
	// score record. Repositories passed to fn belong to the same unit of work.
	WithPlayerLock(ctx context.Context, playerID uuid.UUID, fn func(repos *Repositories) error) error
}

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheckContext(ctx context.Context) error
}

// Repositories groups all repository interfaces
type Repositories struct {
	Score  ScoreRepository
	User   UserRepository
	Tx     TransactionManager
	Health HealthChecker
}
