package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotFound           = errors.New("record not found")
	ErrStorageUnavailable = errors.New("db_connection_error")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrAccountNotVerified = errors.New("account not verified")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrUnknownProvider    = errors.New("unknown identity provider")
	ErrMissingEmailClaim  = errors.New("identity provider returned no email")
	ErrProviderExchange   = errors.New("identity provider exchange failed")
	ErrPasswordMismatch   = errors.New("current password is incorrect")
)
