package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ajharbinger/pacman-arcade/internal/auth"
	apperrors "github.com/ajharbinger/pacman-arcade/internal/errors"
	"github.com/ajharbinger/pacman-arcade/internal/models"
	"github.com/ajharbinger/pacman-arcade/internal/services"
)

// ScoreHandler serves the high-score endpoints
type ScoreHandler struct {
	scoreService services.ScoreService
	defaultSize  int
}

// NewScoreHandler creates a new score handler with service injection
func NewScoreHandler(scoreService services.ScoreService, defaultSize int) *ScoreHandler {
	if defaultSize <= 0 {
		defaultSize = 3
	}
	return &ScoreHandler{
		scoreService: scoreService,
		defaultSize:  defaultSize,
	}
}

// SubmitScoreRequest is the body of POST /highscore.
// Score stays untyped so strings and numbers reach the service as sent.
type SubmitScoreRequest struct {
	Score interface{} `json:"score"`
}

// GetHighScore returns the caller's best score
func (h *ScoreHandler) GetHighScore(c *gin.Context) {
	identity, ok := auth.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	score, err := h.scoreService.GetHighScore(c.Request.Context(), identity.PlayerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.HighScoreResponse{HighScore: score})
}

// SubmitScore records the caller's score. Rejections are plain text.
func (h *ScoreHandler) SubmitScore(c *gin.Context) {
	identity, ok := auth.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req SubmitScoreRequest
	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.String(http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		c.String(http.StatusBadRequest, services.MissingScoreMessage)
		return
	}

	_, err := h.scoreService.SubmitScore(c.Request.Context(), identity.PlayerID, req.Score)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
			c.String(http.StatusBadRequest, services.MissingScoreMessage)
			return
		}
		respondError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

// GetLeaderboard returns the best scores across players, ?limit=n overrides the default size
func (h *ScoreHandler) GetLeaderboard(c *gin.Context) {
	limit := h.defaultSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	entries, err := h.scoreService.RankedLeaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// GetProfile returns the caller's score and the leaderboard
func (h *ScoreHandler) GetProfile(c *gin.Context) {
	identity, ok := auth.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	profile, err := h.scoreService.Profile(c.Request.Context(), identity.PlayerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// IndexPage renders the landing page. Unauthenticated page requests are sent here.
func IndexPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

// ProfilePage renders the caller's profile as HTML
func (h *ScoreHandler) ProfilePage(c *gin.Context) {
	identity, ok := auth.GetIdentity(c)
	if !ok {
		c.Redirect(http.StatusFound, "/")
		return
	}

	profile, err := h.scoreService.Profile(c.Request.Context(), identity.PlayerID)
	if err != nil {
		_ = c.Error(err)
		c.String(apperrors.HTTPStatus(err), http.StatusText(apperrors.HTTPStatus(err)))
		return
	}

	c.HTML(http.StatusOK, "profile.html", profile)
}
