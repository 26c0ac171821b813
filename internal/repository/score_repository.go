package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ajharbinger/pacman-arcade/internal/models"
)

// scoreRepository implements ScoreRepository on PostgreSQL
type scoreRepository struct {
	db dbExecutor
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(db dbExecutor) ScoreRepository {
	return &scoreRepository{db: db}
}

// Get retrieves a player's score record
func (r *scoreRepository) Get(ctx context.Context, playerID uuid.UUID) (*models.ScoreRecord, error) {
	query := `
		SELECT player_id, score, updated_at
		FROM high_scores WHERE player_id = $1
	`

	record := &models.ScoreRecord{}
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(
		&record.PlayerID, &record.Score, &record.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get score: %w", err)
	}

	return record, nil
}

// Upsert creates or overwrites a player's score record
func (r *scoreRepository) Upsert(ctx context.Context, playerID uuid.UUID, score int64) error {
	query := `
		INSERT INTO high_scores (player_id, score, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id) DO UPDATE SET
			score = EXCLUDED.score, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, playerID, score, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert score: %w", err)
	}

	return nil
}

// Top retrieves the n highest scores
func (r *scoreRepository) Top(ctx context.Context, n int) ([]models.ScoreRecord, error) {
	if n <= 0 {
		return []models.ScoreRecord{}, nil
	}

	query := `
		SELECT player_id, score, updated_at
		FROM high_scores
		ORDER BY score DESC, player_id ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer rows.Close()

	records := make([]models.ScoreRecord, 0, n)
	for rows.Next() {
		var record models.ScoreRecord
		if err := rows.Scan(&record.PlayerID, &record.Score, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scores: %w", err)
	}

	return records, nil
}
