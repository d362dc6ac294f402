package persistence

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// SeedUsers creates the configured admin and regular user when the users
// table is empty, so a fresh deployment has working accounts.
func SeedUsers(ctx context.Context, users repository.UserRepository, cfg config.SeedConfig, bcryptCost int, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	count, err := users.CountAll(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	accounts := []struct {
		name     string
		email    string
		password string
		role     domain.Role
	}{
		{cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword, domain.RoleAdmin},
		{cfg.UserName, cfg.UserEmail, cfg.UserPassword, domain.RoleUser},
	}

	for _, acct := range accounts {
		hash, err := auth.HashPassword(acct.password, bcryptCost)
		if err != nil {
			return err
		}
		user := &domain.User{
			Name:         acct.name,
			Email:        acct.email,
			PasswordHash: hash,
			Role:         acct.role,
		}
		if err := users.Create(ctx, user); err != nil {
			return err
		}
		logger.Info("seeded account", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	}
	return nil
}
