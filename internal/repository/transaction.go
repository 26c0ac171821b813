package repository

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/ajharbinger/pacman-arcade/internal/database"
)

// dbExecutor is an interface that both *sql.DB and *sql.Tx implement
type dbExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// transactionManager implements TransactionManager
type transactionManager struct {
	db     *sql.DB
	health HealthChecker
}

// advisoryKey maps a player id onto the bigint keyspace of pg_advisory_xact_lock
func advisoryKey(playerID uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(playerID[:8]))
}

// WithPlayerLock executes fn in a transaction holding the player's advisory lock.
// The lock is released when the transaction ends.
func (tm *transactionManager) WithPlayerLock(ctx context.Context, playerID uuid.UUID, fn func(repos *Repositories) error) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryKey(playerID)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to lock player %s: %w", playerID, err)
	}

	// Create repositories with the transaction
	repos := &Repositories{
		Score:  NewScoreRepository(tx),
		User:   NewUserRepository(tx),
		Tx:     tm,
		Health: tm.health,
	}

	if err := fn(repos); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("transaction failed: %v, rollback failed: %w", err, rollbackErr)
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// NewRepositories creates a new repository collection backed by PostgreSQL.
// The pool's own health check backs Repositories.Health.
func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Score:  NewScoreRepository(db.DB),
		User:   NewUserRepository(db.DB),
		Tx:     &transactionManager{db: db.DB, health: db},
		Health: db,
	}
}
