package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Cookie names
const (
	AuthCookie = "auth_token"
	CSRFCookie = "csrf_token"
	CSRFHeader = "X-CSRF-Token"
)

const tokenTTL = 24 * time.Hour

// Claims represents JWT claims
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token operations
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// GenerateToken generates a JWT token for a user
func (j *JWTService) GenerateToken(claims Claims) (string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(tokenTTL)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != uuid.Nil {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// tokenFromRequest reads the session cookie, falling back to a Bearer header
func tokenFromRequest(c *gin.Context) (string, bool) {
	if tokenString, err := c.Cookie(AuthCookie); err == nil && tokenString != "" {
		return tokenString, true
	}

	authHeader := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if authHeader == "" || tokenString == authHeader {
		return "", false
	}
	return tokenString, true
}

// authenticate resolves the caller's identity and stores it on the context
func (j *JWTService) authenticate(c *gin.Context) bool {
	tokenString, ok := tokenFromRequest(c)
	if !ok {
		return false
	}

	claims, err := j.ValidateToken(tokenString)
	if err != nil {
		return false
	}

	SetIdentity(c, Identity{PlayerID: claims.UserID, Username: claims.Username})
	return true
}

// JWTMiddleware rejects API requests without a valid session with 401
func JWTMiddleware(service *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !service.authenticate(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// PageMiddleware redirects browsers without a valid session to redirectTo
func PageMiddleware(service *JWTService, redirectTo string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !service.authenticate(c) {
			c.Redirect(http.StatusFound, redirectTo)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CSRFMiddleware validates CSRF tokens for state-changing operations.
// Requests authenticated by Bearer header carry no ambient credentials and skip the check.
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if _, err := c.Cookie(AuthCookie); err != nil {
			c.Next()
			return
		}

		csrfCookie, err := c.Cookie(CSRFCookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF token required in cookie"})
			return
		}

		csrfHeader := c.GetHeader(CSRFHeader)
		if csrfHeader == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF token required in X-CSRF-Token header"})
			return
		}

		if csrfCookie != csrfHeader {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "CSRF token mismatch"})
			return
		}

		c.Next()
	}
}
