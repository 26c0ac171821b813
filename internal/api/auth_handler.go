package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ajharbinger/pacman-arcade/internal/auth"
	"github.com/ajharbinger/pacman-arcade/internal/models"
	"github.com/ajharbinger/pacman-arcade/internal/services"
)

// AuthHandler handles authentication operations
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new auth handler with service injection
func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
	CSRFToken string      `json:"csrf_token"`
}

// startSession sets the session cookies and writes the response body
func startSession(c *gin.Context, status int, session *services.Session) {
	csrfToken, err := auth.StartSession(c, session.Token, session.ExpiresAt)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
		return
	}

	c.JSON(status, AuthResponse{
		User:      session.User,
		ExpiresAt: session.ExpiresAt,
		CSRFToken: csrfToken,
	})
}

// Login authenticates a user
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	startSession(c, http.StatusOK, session)
}

// Register creates a new user account and logs it in
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	session, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		var regErr *services.RegistrationError
		if errors.As(err, &regErr) {
			status := http.StatusBadRequest
			if regErr.UsernameTaken() {
				status = http.StatusConflict
			}
			c.JSON(status, gin.H{
				"error":  "Registration failed",
				"fields": regErr.Result.Errors,
			})
			return
		}
		respondError(c, err)
		return
	}

	startSession(c, http.StatusCreated, session)
}

// Logout clears the session cookies
func (h *AuthHandler) Logout(c *gin.Context) {
	auth.EndSession(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
