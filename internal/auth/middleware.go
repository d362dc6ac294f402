package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ActorLocalKey is the fiber locals key under which the authenticated
// Actor is stored; the websocket upgrade reads it from connection locals.
const ActorLocalKey = "auth_actor"

// Middleware validates bearer tokens and builds a per-request Actor.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes. The bearer token is
// decoded on every request; the resulting Actor lives only in the request
// locals, never in shared state.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	actor, err := m.Resolve(c.Context(), token)
	if err != nil {
		return err
	}

	c.Locals(ActorLocalKey, *actor)
	return c.Next()
}

// Resolve decodes a raw token into an Actor, verifying the account still
// exists. Shared by the HTTP middleware and the websocket upgrade.
func (m *Middleware) Resolve(ctx context.Context, token string) (*domain.Actor, error) {
	claims, err := m.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(ctx, claims.SubjectID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewUnauthorized("account no longer exists")
		}
		return nil, apperrors.MapError(err)
	}

	return &domain.Actor{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}, nil
}

// ActorFromContext retrieves the authenticated actor for the request.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	val := c.Locals(ActorLocalKey)
	if val == nil {
		return domain.Actor{}, false
	}
	actor, ok := val.(domain.Actor)
	return actor, ok
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	// websocket clients cannot always set headers; allow a query token
	return c.Query("token")
}
