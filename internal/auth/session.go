package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// GenerateCSRFToken generates a cryptographically secure CSRF token
func GenerateCSRFToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func isSecure(c *gin.Context) bool {
	return c.Request.Header.Get("X-Forwarded-Proto") == "https" || c.Request.TLS != nil
}

// StartSession sets the auth and CSRF cookies and returns the CSRF token.
// The CSRF cookie is readable by scripts so the game can echo it in X-CSRF-Token.
func StartSession(c *gin.Context, token string, expiresAt time.Time) (string, error) {
	csrfToken, err := GenerateCSRFToken()
	if err != nil {
		return "", err
	}

	maxAge := int(time.Until(expiresAt).Seconds())
	secure := isSecure(c)
	c.SetCookie(AuthCookie, token, maxAge, "/", "", secure, true)
	c.SetCookie(CSRFCookie, csrfToken, maxAge, "/", "", secure, false)
	return csrfToken, nil
}

// EndSession clears the session cookies
func EndSession(c *gin.Context) {
	secure := isSecure(c)
	c.SetCookie(AuthCookie, "", -1, "/", "", secure, true)
	c.SetCookie(CSRFCookie, "", -1, "/", "", secure, false)
}
