package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/adapter/password"
	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit, in bytes
	tokenBytes        = 32
	resetTokenTTL     = time.Hour
	notifyTimeout     = 30 * time.Second
)

// LoginPolicy holds the environment-dependent login rules. It is built once
// from configuration and handed to the service.
type LoginPolicy struct {
	// RequireVerifiedAccount rejects logins of inactive accounts.
	RequireVerifiedAccount bool
}

// RegisterInput is the payload of a local sign-up.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// AuthService implements local credential flows: login, registration,
// email verification and password management.
type AuthService struct {
	users     port.UserStore
	hasher    port.PasswordHasher
	notifier  port.Notifier
	policy    LoginPolicy
	dummyHash string
	now       func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(users port.UserStore, hasher port.PasswordHasher, notifier port.Notifier, policy LoginPolicy) *AuthService {
	// compared against when the email is unknown, so both failure paths hash
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		slog.Warn("could not prepare dummy password hash", "error", err)
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		notifier:  notifier,
		policy:    policy,
		dummyHash: dummy,
		now:       time.Now,
	}
}

// Policy returns the login policy the service was built with.
func (s *AuthService) Policy() LoginPolicy {
	return s.policy
}

// Login checks an email/password pair. Unknown email and wrong password both
// yield port.ErrInvalidCredentials. Storage failures are returned wrapped in
// port.ErrStorageUnavailable.
func (s *AuthService) Login(ctx context.Context, email, pw string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || pw == "" {
		return nil, port.ErrMissingCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, port.ErrUserNotFound) {
		_ = s.hasher.Compare(s.dummyHash, pw)
		return nil, port.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, pw); err != nil {
		return nil, port.ErrInvalidCredentials
	}

	if !user.IsActive && s.policy.RequireVerifiedAccount {
		return nil, port.ErrAccountNotVerified
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("failed to update last login", "user_id", user.ID, "error", err)
	} else {
		now := s.now()
		user.LastLogin = &now
	}

	slog.Info("user logged in", "user_id", user.ID)
	return user, nil
}

// Register creates an inactive account and emails its verification token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}
	token, err := password.RandomSecret(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("register: verification token: %w", err)
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		if username, err = handleFromEmail(email); err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = username
	}

	user, err := s.users.CreateUser(ctx, &domain.User{
		Username:          username,
		Email:             email,
		PasswordHash:      hash,
		Name:              name,
		Role:              domain.RoleUser,
		IsActive:          false,
		VerificationToken: &token,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	s.sendWelcome(ctx, port.WelcomeEmail{Email: user.Email, Name: user.Name, VerificationToken: token})
	return user, nil
}

// VerifyEmail consumes a verification token and activates its owner.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, port.ErrInvalidToken
	}
	user, err := s.users.VerifyUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}
	slog.Info("email verified", "user_id", user.ID)
	return user, nil
}

// ResendVerification issues a fresh verification token for the inactive
// account owning email. Unknown or already active accounts are ignored.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, port.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	if user.IsActive {
		return nil
	}
	token, err := password.RandomSecret(tokenBytes)
	if err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	if err := s.users.SetVerificationToken(ctx, user.ID, token); err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	s.sendWelcome(ctx, port.WelcomeEmail{Email: user.Email, Name: user.Name, VerificationToken: token})
	return nil
}

// RequestPasswordReset stores a one-hour reset token for email and mails it.
// An unknown email is not an error.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	token, err := password.RandomSecret(tokenBytes)
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}

	user, err := s.users.SetResetToken(ctx, email, token, s.now().Add(resetTokenTTL))
	if errors.Is(err, port.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}

	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := s.notifier.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
			slog.Error("failed to send password reset email", "user_id", user.ID, "error", err)
		}
	}(context.WithoutCancel(ctx))
	return nil
}

// ResetPassword sets a new password for the owner of a valid reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return port.ErrInvalidToken
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	userID, err := s.users.ResetPassword(ctx, token, hash)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	s.recordPasswordChange(ctx, userID)
	return nil
}

// ChangePassword replaces the password of userID after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if current == "" || next == "" {
		return port.ErrMissingCredentials
	}
	if err := checkPassword(next); err != nil {
		return err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, current); err != nil {
		return port.ErrPasswordMismatch
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	s.recordPasswordChange(ctx, userID)
	return nil
}

// LastPasswordChange returns the latest password change of userID, or nil
// when the password was never changed.
func (s *AuthService) LastPasswordChange(ctx context.Context, userID int64) (*domain.PasswordChange, error) {
	pc, err := s.users.GetLastPasswordChange(ctx, userID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("password status: %w", err)
	}
	return pc, nil
}

func (s *AuthService) recordPasswordChange(ctx context.Context, userID int64) {
	if err := s.users.RecordPasswordChange(ctx, userID); err != nil {
		slog.Error("failed to record password change", "user_id", userID, "error", err)
		return
	}
	slog.Info("password changed", "user_id", userID)
}

// sendWelcome mails msg in the background. Failures are only logged.
func (s *AuthService) sendWelcome(ctx context.Context, msg port.WelcomeEmail) {
	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		if err := s.notifier.SendWelcomeEmail(ctx, msg); err != nil {
			slog.Error("failed to send welcome email", "email", msg.Email, "error", err)
		}
	}(context.WithoutCancel(ctx))
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", port.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", port.ErrInvalidEmail
	}
	return email, nil
}

// handleFromEmail derives a username from the local part of email plus a
// random suffix, e.g. "jane.doe-3fa91c".
func handleFromEmail(email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" {
		base = "user"
	}
	if len(base) > 32 {
		base = base[:32]
	}
	suffix, err := password.RandomSecret(3)
	if err != nil {
		return "", err
	}
	return base + "-" + suffix, nil
}

func checkPassword(pw string) error {
	switch {
	case len(pw) < minPasswordLength:
		return port.ErrWeakPassword
	case len(pw) > maxPasswordLength:
		return port.ErrPasswordTooLong
	}
	return nil
}
