package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthService authenticates accounts and issues credential tokens.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenManager
}

// Session is the result of a successful login.
type Session struct {
	Identity    string
	DisplayName string
	Role        domain.Role
	Token       string
	ExpiresAt   time.Time
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository) *AuthService {
	return &AuthService{
		users:  users,
		tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Login verifies credentials and issues a session token. Bad identity and
// bad secret are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, identity, secret string) (*Session, error) {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" || secret == "" {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	user, err := s.users.GetByEmail(ctx, identity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}

	if err := auth.ComparePassword(user.PasswordHash, secret); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	return &Session{
		Identity:    user.Email,
		DisplayName: user.Name,
		Role:        user.Role,
		Token:       token,
		ExpiresAt:   expiresAt,
	}, nil
}
