package handler

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/adapter/password"
	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/middleware"
	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/arturoeanton/agency-backoffice/internal/service"
	"github.com/gofiber/fiber/v3"
)

const (
	stateCookie = "oauth_state"
	stateTTL    = 10 * time.Minute
)

// OAuth failure reasons passed to the frontend login page.
const (
	reasonStorage      = "db_connection_error"
	reasonNoEmail      = "oauth_no_email"
	reasonInvalidState = "oauth_invalid_state"
	reasonFailed       = "oauth_failed"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth        *service.AuthService
	oauth       *service.OAuthService
	sessions    *middleware.Sessions
	gate        fiber.Handler
	audit       middleware.AuditWriter
	frontendURL string
}

// NewAuthHandler creates a new auth handler. gate is the authentication
// middleware protecting the account routes.
func NewAuthHandler(
	auth *service.AuthService,
	oauth *service.OAuthService,
	sessions *middleware.Sessions,
	gate fiber.Handler,
	audit middleware.AuditWriter,
	frontendURL string,
) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		oauth:       oauth,
		sessions:    sessions,
		gate:        gate,
		audit:       audit,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Register sets up auth routes. OAuth routes exist only for configured
// providers.
func (h *AuthHandler) Register(router fiber.Router) {
	auth := router.Group("/auth")
	auth.Post("/login", h.Login)
	auth.Post("/logout", h.Logout)
	auth.Post("/register", h.SignUp)
	auth.Get("/verify", h.Verify)
	auth.Post("/resend-verification", h.ResendVerification)
	auth.Post("/forgot-password", h.ForgotPassword)
	auth.Post("/reset-password", h.ResetPassword)

	auth.Get("/me", h.gate, h.Me)
	auth.Post("/change-password", h.gate, h.ChangePassword)
	auth.Get("/password-status", h.gate, h.PasswordStatus)

	auth.Get("/providers", h.Providers)
	for _, name := range h.oauth.Providers() {
		auth.Get("/"+name, h.oauthStart(name))
		auth.Get("/"+name+"/callback", h.oauthCallback(name))
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an email/password pair and opens a session.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req loginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, port.ErrMissingCredentials.Error())
	}

	user, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, port.ErrInvalidCredentials) {
			middleware.RecordEvent(h.audit, c, 0, domain.AuditActionLoginFailure, "auth", nil)
		}
		return failErr(c, err)
	}

	if _, err := h.sessions.Start(c, user); err != nil {
		slog.Error("failed to start session", "user_id", user.ID, "error", err)
		return fail(c, fiber.StatusServiceUnavailable, port.ErrStorageUnavailable.Error())
	}

	middleware.RecordEvent(h.audit, c, user.ID, domain.AuditActionLogin, "auth", map[string]any{"method": "password"})
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// Logout destroys the current session.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	var userID int64
	if sess, err := h.sessions.Current(c); err == nil {
		userID = sess.UserID
	}
	if err := h.sessions.Destroy(c); err != nil {
		slog.Error("failed to destroy session", "error", err)
		return fail(c, fiber.StatusServiceUnavailable, port.ErrStorageUnavailable.Error())
	}
	if userID != 0 {
		middleware.RecordEvent(h.audit, c, userID, domain.AuditActionLogout, "auth", nil)
	}
	return c.JSON(fiber.Map{"success": true, "message": "logged out"})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "user": middleware.GetCurrentUser(c)})
}

// SignUp registers a local account pending email verification.
func (h *AuthHandler) SignUp(c fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	user, err := h.auth.Register(c.Context(), req)
	if err != nil {
		return failErr(c, err)
	}

	middleware.RecordEvent(h.audit, c, user.ID, domain.AuditActionRegister, "auth", nil)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "account created, check your email to verify it",
		"user":    user,
	})
}

// Verify consumes an email verification token.
func (h *AuthHandler) Verify(c fiber.Ctx) error {
	user, err := h.auth.VerifyEmail(c.Context(), c.Query("token"))
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "email verified", "user": user})
}

type emailRequest struct {
	Email string `json:"email"`
}

// ResendVerification mails a fresh verification link. Always answers 200 for
// well-formed addresses.
func (h *AuthHandler) ResendVerification(c fiber.Ctx) error {
	var req emailRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	if err := h.auth.ResendVerification(c.Context(), req.Email); err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "if the account exists, a verification email has been sent"})
}

// ForgotPassword starts a password reset. Always answers 200 for well-formed
// addresses.
func (h *AuthHandler) ForgotPassword(c fiber.Ctx) error {
	var req emailRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	if err := h.auth.RequestPasswordReset(c.Context(), req.Email); err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "if the account exists, a reset link has been sent"})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword sets a new password from a reset token.
func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	if err := h.auth.ResetPassword(c.Context(), req.Token, req.Password); err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "password updated"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword replaces the authenticated user's password.
func (h *AuthHandler) ChangePassword(c fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	user := middleware.GetCurrentUser(c)
	if err := h.auth.ChangePassword(c.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return failErr(c, err)
	}
	middleware.RecordEvent(h.audit, c, user.ID, domain.AuditActionPasswordChange, "auth", nil)
	return c.JSON(fiber.Map{"success": true, "message": "password updated"})
}

// PasswordStatus returns when the authenticated user last changed password.
func (h *AuthHandler) PasswordStatus(c fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	pc, err := h.auth.LastPasswordChange(c.Context(), user.ID)
	if err != nil {
		return failErr(c, err)
	}
	var changedAt *time.Time
	if pc != nil {
		changedAt = &pc.ChangedAt
	}
	return c.JSON(fiber.Map{"success": true, "lastChanged": changedAt})
}

// Providers lists the OAuth providers available for sign-in.
func (h *AuthHandler) Providers(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "providers": h.oauth.Providers()})
}

// oauthStart redirects to the provider's consent screen. The provider name is
// encoded into the state as "provider:random" and pinned in a cookie.
func (h *AuthHandler) oauthStart(provider string) fiber.Handler {
	return func(c fiber.Ctx) error {
		nonce, err := password.RandomSecret(16)
		if err != nil {
			return h.oauthFail(c, reasonFailed)
		}
		state := provider + ":" + nonce

		authURL, err := h.oauth.GetAuthURL(provider, state)
		if err != nil {
			return h.oauthFail(c, reasonFailed)
		}

		h.sessions.Cookie(c, stateCookie, state, stateTTL)
		return c.Redirect().Status(fiber.StatusFound).To(authURL)
	}
}

// oauthCallback completes the sign-in. It always answers with a redirect to
// the frontend.
func (h *AuthHandler) oauthCallback(provider string) fiber.Handler {
	return func(c fiber.Ctx) error {
		expected := c.Cookies(stateCookie)
		h.sessions.Expire(c, stateCookie)

		if c.Query("error") != "" {
			return h.oauthFail(c, reasonFailed)
		}

		state := c.Query("state")
		if state == "" || expected == "" ||
			!strings.HasPrefix(state, provider+":") ||
			subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
			return h.oauthFail(c, reasonInvalidState)
		}

		user, err := h.oauth.HandleCallback(c.Context(), provider, c.Query("code"))
		if err != nil {
			slog.Warn("oauth callback failed", "provider", provider, "error", err)
			switch {
			case errors.Is(err, port.ErrStorageUnavailable):
				return h.oauthFail(c, reasonStorage)
			case errors.Is(err, port.ErrMissingEmailClaim):
				return h.oauthFail(c, reasonNoEmail)
			default:
				return h.oauthFail(c, reasonFailed)
			}
		}

		if _, err := h.sessions.Start(c, user); err != nil {
			slog.Error("failed to start session", "user_id", user.ID, "error", err)
			if errors.Is(err, port.ErrStorageUnavailable) {
				return h.oauthFail(c, reasonStorage)
			}
			return h.oauthFail(c, reasonFailed)
		}

		middleware.RecordEvent(h.audit, c, user.ID, domain.AuditActionOAuthLogin, "auth", map[string]any{"provider": provider})
		return c.Redirect().Status(fiber.StatusFound).To(h.frontendURL + "/auth/callback?login=success")
	}
}

func (h *AuthHandler) oauthFail(c fiber.Ctx, reason string) error {
	return c.Redirect().Status(fiber.StatusFound).To(h.frontendURL + "/login?error=" + url.QueryEscape(reason))
}
