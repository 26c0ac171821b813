package models

import (
	"time"

	"github.com/google/uuid"
)

// ScoreRecord is a player's best recorded score.
// There is at most one per player and Score never decreases.
type ScoreRecord struct {
	PlayerID  uuid.UUID `json:"playerId" db:"player_id"`
	Score     int64     `json:"score" db:"score"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// LeaderboardEntry is one row of the leaderboard shown to players
type LeaderboardEntry struct {
	Rank     int       `json:"rank"`
	PlayerID uuid.UUID `json:"playerId"`
	Username string    `json:"username,omitempty"`
	Score    int64     `json:"score"`
}

// HighScoreResponse is the body of GET /highscore
type HighScoreResponse struct {
	HighScore int64 `json:"highScore"`
}

// ProfileView is the data passed to the profile template
type ProfileView struct {
	Username   string             `json:"username"`
	Score      int64              `json:"score"`
	HighScores []LeaderboardEntry `json:"highScores"`
}
