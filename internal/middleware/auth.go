package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/gofiber/fiber/v3"
)

const (
	localsUser    = "user"
	localsSession = "session"
)

// UserLookup resolves the user referenced by a session.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// RequireAuth resolves the session cookie to an active user and attaches it
// to the request. Passing through it twice in one request is a no-op.
func RequireAuth(sessions *Sessions, users UserLookup) fiber.Handler {
	return func(c fiber.Ctx) error {
		if GetCurrentUser(c) != nil {
			return c.Next()
		}

		sess, err := sessions.Current(c)
		switch {
		case errors.Is(err, port.ErrSessionNotFound):
			return reject(c, fiber.StatusUnauthorized, "not authenticated")
		case err != nil:
			slog.Error("session lookup failed", "error", err)
			return reject(c, fiber.StatusServiceUnavailable, port.ErrStorageUnavailable.Error())
		case sess.Anonymous():
			return reject(c, fiber.StatusUnauthorized, "not authenticated")
		}

		user, err := users.GetUserByID(c.Context(), sess.UserID)
		switch {
		case errors.Is(err, port.ErrUserNotFound):
			slog.Warn("session references a missing user", "user_id", sess.UserID)
			if err := sessions.Destroy(c); err != nil {
				slog.Error("failed to destroy orphaned session", "error", err)
			}
			return reject(c, fiber.StatusUnauthorized, "not authenticated")
		case err != nil:
			slog.Error("user lookup failed", "user_id", sess.UserID, "error", err)
			return reject(c, fiber.StatusServiceUnavailable, port.ErrStorageUnavailable.Error())
		case !user.IsActive:
			return reject(c, fiber.StatusForbidden, port.ErrAccountNotVerified.Error())
		}

		if err := sessions.Refresh(c, sess); err != nil {
			slog.Warn("failed to refresh session", "user_id", user.ID, "error", err)
		}

		c.Locals(localsUser, user)
		return c.Next()
	}
}

// RequireAdmin only lets through users holding the admin role. It expects
// RequireAuth to have run before it.
func RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		if !GetCurrentUser(c).IsAdmin() {
			return reject(c, fiber.StatusForbidden, "forbidden")
		}
		return c.Next()
	}
}

// GetCurrentUser returns the user resolved by RequireAuth, or nil.
func GetCurrentUser(c fiber.Ctx) *domain.User {
	u, ok := c.Locals(localsUser).(*domain.User)
	if !ok {
		return nil
	}
	return u
}

func reject(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
