package services

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/ajharbinger/pacman-arcade/internal/errors"
	"github.com/ajharbinger/pacman-arcade/internal/auth"
	"github.com/ajharbinger/pacman-arcade/internal/logger"
	"github.com/ajharbinger/pacman-arcade/internal/models"
	"github.com/ajharbinger/pacman-arcade/internal/repository"
	"github.com/ajharbinger/pacman-arcade/internal/validation"
)

// Session is an issued login
type Session struct {
	Token     string      `json:"-"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// authServiceImpl implements AuthService
type authServiceImpl struct {
	repos      *repository.Repositories
	jwtService *auth.JWTService
	log        logger.Logger
}

// NewAuthService creates a new auth service implementation
func NewAuthService(repos *repository.Repositories, jwtSecret string, log logger.Logger) AuthService {
	return &authServiceImpl{
		repos:      repos,
		jwtService: auth.NewJWTService(jwtSecret),
		log:        log.With("component", "auth_service"),
	}
}

func (s *authServiceImpl) issue(user *models.User) (*Session, error) {
	token, expiresAt, err := s.jwtService.GenerateToken(auth.Claims{
		UserID:   user.ID,
		Username: user.Username,
	})
	if err != nil {
		return nil, apperrors.InternalError("failed to generate token", err)
	}

	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.Public(),
	}, nil
}

// Login authenticates a user and returns a session
func (s *authServiceImpl) Login(ctx context.Context, req models.LoginRequest) (*Session, error) {
	req, result := validation.ValidateLogin(req)
	if !result.OK() {
		return nil, apperrors.Unauthorized("invalid credentials", nil).WithOperation("Login")
	}

	user, err := s.repos.User.GetByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("invalid credentials", nil).WithOperation("Login")
	}
	if err != nil {
		s.log.Error("failed to load user", err, "username", req.Username)
		return nil, apperrors.StoreUnavailable("failed to load user", err).WithOperation("Login")
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		s.log.Warn("failed login", "username", req.Username)
		return nil, apperrors.Unauthorized("invalid credentials", nil).WithOperation("Login")
	}

	return s.issue(user)
}

// Register creates a new account and logs it in
func (s *authServiceImpl) Register(ctx context.Context, req models.RegisterRequest) (*Session, error) {
	req, result := validation.ValidateRegistration(req)
	if !result.OK() {
		return nil, &RegistrationError{Result: result}
	}

	hashedPassword, err := auth.HashPassword(req.Password1)
	if err != nil {
		return nil, apperrors.InternalError("failed to hash password", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashedPassword,
	}

	if err := s.repos.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, &RegistrationError{Result: validation.Result{Errors: []validation.FieldError{{
				Field:   "username",
				Code:    validation.CodeUsernameTaken,
				Message: "A user with that username already exists",
			}}}}
		}
		s.log.Error("failed to create user", err, "username", req.Username)
		return nil, apperrors.StoreUnavailable("failed to create user", err).WithOperation("Register")
	}

	s.log.Info("user registered", "user_id", user.ID, "username", user.Username)
	return s.issue(user)
}

// RegistrationError carries the field errors of a rejected registration
type RegistrationError struct {
	Result validation.Result
}

func (e *RegistrationError) Error() string {
	if len(e.Result.Errors) == 0 {
		return "registration rejected"
	}
	return "registration rejected: " + e.Result.Errors[0].Field + ": " + e.Result.Errors[0].Message
}

// UsernameTaken reports whether registration failed on an existing username
func (e *RegistrationError) UsernameTaken() bool {
	return e.Result.Has("username", validation.CodeUsernameTaken)
}
