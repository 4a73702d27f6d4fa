package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
)

// SeedAdmin creates an active admin account for email with the given
// password when no account with that email exists yet. An existing account is
// returned untouched, so role, status and password changes made later survive
// restarts. It does nothing when email or password is empty.
func SeedAdmin(ctx context.Context, users port.UserStore, hasher port.PasswordHasher, email, pw string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || pw == "" {
		return nil, nil
	}
	if err := checkPassword(pw); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	existing, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		slog.Info("seed admin already present", "user_id", existing.ID, "role", existing.Role, "active", existing.IsActive)
		return existing, nil
	}
	if !errors.Is(err, port.ErrUserNotFound) {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	hash, err := hasher.Hash(pw)
	if err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	handle, err := handleFromEmail(email)
	if err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	user, err := users.CreateUser(ctx, &domain.User{
		Username:     handle,
		Email:        email,
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         domain.RoleAdmin,
		IsActive:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	slog.Info("seed admin created", "user_id", user.ID)
	return user, nil
}
