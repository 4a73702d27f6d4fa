package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/arturoeanton/agency-backoffice/internal/adapter/password"
	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
)

// OAuthService bridges a third-party identity onto a local user.
type OAuthService struct {
	providers port.AuthProviderRegistry
	users     port.UserStore
	hasher    port.PasswordHasher
	notifier  port.Notifier
}

// NewOAuthService creates the OAuth bridge over the registered providers.
func NewOAuthService(providers port.AuthProviderRegistry, users port.UserStore, hasher port.PasswordHasher, notifier port.Notifier) *OAuthService {
	return &OAuthService{
		providers: providers,
		users:     users,
		hasher:    hasher,
		notifier:  notifier,
	}
}

// Providers returns the names of the registered providers, sorted.
func (s *OAuthService) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAuthURL returns the OAuth2 authorization URL for the given provider.
func (s *OAuthService) GetAuthURL(providerName, state string) (string, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %s", port.ErrUnknownProvider, providerName)
	}
	return provider.AuthURL(state), nil
}

// HandleCallback exchanges code with the provider, fetches the profile and
// resolves it to a local user.
func (s *OAuthService) HandleCallback(ctx context.Context, providerName, code string) (*domain.User, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", port.ErrUnknownProvider, providerName)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", port.ErrProviderExchange)
	}

	tokens, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %w", port.ErrProviderExchange, err)
	}

	profile, err := provider.GetUserProfile(ctx, tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: get profile: %w", port.ErrProviderExchange, err)
	}

	user, err := s.ResolveProfile(ctx, profile)
	if err != nil {
		return nil, err
	}

	slog.Info("user authenticated", "user_id", user.ID, "provider", providerName)
	return user, nil
}

// ResolveProfile finds the local user owning profile.Email, creating an
// active account on first sign-in and activating an inactive one.
func (s *OAuthService) ResolveProfile(ctx context.Context, profile *domain.OAuthProfile) (*domain.User, error) {
	if profile == nil || strings.TrimSpace(profile.Email) == "" {
		return nil, port.ErrMissingEmailClaim
	}
	email := strings.TrimSpace(profile.Email)

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, port.ErrUserNotFound):
		return s.createFromProfile(ctx, email, profile)
	case err != nil:
		return nil, fmt.Errorf("oauth lookup: %w", err)
	}

	if !user.IsActive {
		active := true
		if updated, err := s.users.UpdateUser(ctx, user.ID, domain.UserUpdate{IsActive: &active}); err != nil {
			slog.Warn("failed to activate oauth user", "user_id", user.ID, "error", err)
		} else {
			user = updated
		}
	}
	return user, nil
}

func (s *OAuthService) createFromProfile(ctx context.Context, email string, profile *domain.OAuthProfile) (*domain.User, error) {
	handle, err := handleFromEmail(email)
	if err != nil {
		return nil, fmt.Errorf("oauth create: %w", err)
	}
	secret, err := password.RandomSecret(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("oauth create: %w", err)
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("oauth create: %w", err)
	}

	name := strings.TrimSpace(profile.Name)
	if name == "" {
		name = handle
	}

	user, err := s.users.CreateUser(ctx, &domain.User{
		Username:     handle,
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		AvatarURL:    profile.AvatarURL,
		Role:         domain.RoleUser,
		IsActive:     true,
	})
	if errors.Is(err, port.ErrEmailTaken) {
		// lost a race with a concurrent first sign-in, which sends the welcome
		user, err = s.users.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("oauth create: %w", err)
		}
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("oauth create: %w", err)
	}

	slog.Info("user created from oauth profile", "user_id", user.ID, "provider", profile.Provider)

	msg := port.WelcomeEmail{Email: user.Email, Name: user.Name}
	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := s.notifier.SendWelcomeEmail(ctx, msg); err != nil {
			slog.Error("failed to send welcome email", "user_id", user.ID, "error", err)
		}
	}(context.WithoutCancel(ctx))

	return user, nil
}
