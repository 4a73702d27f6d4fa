package port

import (
	"context"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
)

// UserStore is the credential store. Missing rows are reported as
// ErrUserNotFound or ErrInvalidToken; any other error is a storage failure.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// CreateUser inserts u and returns the stored row. A duplicate email
	// yields ErrEmailTaken.
	CreateUser(ctx context.Context, u *domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)

	// VerifyUser activates the owner of token and clears the token.
	VerifyUser(ctx context.Context, token string) (*domain.User, error)
	SetVerificationToken(ctx context.Context, id int64, token string) error

	// SetResetToken stores a reset token on the user owning email.
	SetResetToken(ctx context.Context, email, token string, expiresAt time.Time) (*domain.User, error)
	// ResetPassword replaces the password of the owner of an unexpired
	// token, clears the token and returns the user id.
	ResetPassword(ctx context.Context, token, passwordHash string) (int64, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	UpdateLastLogin(ctx context.Context, id int64) error
	RecordPasswordChange(ctx context.Context, id int64) error
	GetLastPasswordChange(ctx context.Context, id int64) (*domain.PasswordChange, error)
}

// SessionStore keeps sessions server-side, keyed by an opaque identifier.
type SessionStore interface {
	// Create stores a new session for userID/email valid for ttl.
	Create(ctx context.Context, userID int64, email string, ttl time.Duration) (*domain.Session, error)
	// Get returns ErrSessionNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Touch slides the expiry of the session to now+ttl.
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Destroy(ctx context.Context, id string) error
}

// WelcomeEmail is the payload of a welcome notification.
type WelcomeEmail struct {
	Email             string
	Name              string
	VerificationToken string // empty for accounts that need no verification
}

// Notifier sends transactional email. Callers treat failures as non-fatal.
type Notifier interface {
	SendWelcomeEmail(ctx context.Context, msg WelcomeEmail) error
	SendPasswordResetEmail(ctx context.Context, email, token string) error
}
