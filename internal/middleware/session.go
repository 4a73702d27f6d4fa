package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/gofiber/fiber/v3"
)

// SessionConfig holds the session cookie settings.
type SessionConfig struct {
	CookieName string
	Secret     string
	MaxAge     time.Duration
	Secure     bool
	SameSite   string // "strict" or "lax"
}

// Sessions binds the server-side session store to the signed session cookie.
type Sessions struct {
	store port.SessionStore
	cfg   SessionConfig
}

// NewSessions creates a session manager over store.
func NewSessions(store port.SessionStore, cfg SessionConfig) *Sessions {
	if cfg.CookieName == "" {
		cfg.CookieName = "agency.sid"
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	return &Sessions{store: store, cfg: cfg}
}

// CookieName returns the name of the session cookie.
func (m *Sessions) CookieName() string {
	return m.cfg.CookieName
}

// Start establishes a new session for user and issues its cookie. Any session
// the request already carried is destroyed first.
func (m *Sessions) Start(c fiber.Ctx, user *domain.User) (*domain.Session, error) {
	if id, ok := m.cookieID(c); ok {
		if err := m.store.Destroy(c.Context(), id); err != nil {
			slog.Warn("failed to destroy previous session", "error", err)
		}
	}

	sess, err := m.store.Create(c.Context(), user.ID, user.Email, m.cfg.MaxAge)
	if err != nil {
		return nil, err
	}
	m.setCookie(c, sess.ID)
	c.Locals(localsSession, sess)
	return sess, nil
}

// Current loads the session referenced by the request cookie. A missing,
// tampered or expired cookie yields port.ErrSessionNotFound.
func (m *Sessions) Current(c fiber.Ctx) (*domain.Session, error) {
	if sess, ok := c.Locals(localsSession).(*domain.Session); ok {
		return sess, nil
	}
	id, ok := m.cookieID(c)
	if !ok {
		return nil, port.ErrSessionNotFound
	}
	sess, err := m.store.Get(c.Context(), id)
	if err != nil {
		return nil, err
	}
	c.Locals(localsSession, sess)
	return sess, nil
}

// Refresh slides the expiry of sess and re-issues its cookie.
func (m *Sessions) Refresh(c fiber.Ctx, sess *domain.Session) error {
	if err := m.store.Touch(c.Context(), sess.ID, m.cfg.MaxAge); err != nil {
		return err
	}
	sess.ExpiresAt = time.Now().Add(m.cfg.MaxAge)
	m.setCookie(c, sess.ID)
	return nil
}

// Destroy removes the request's session, if any, and clears the cookie.
func (m *Sessions) Destroy(c fiber.Ctx) error {
	defer m.clearCookie(c)
	c.Locals(localsSession, nil)

	id, ok := m.cookieID(c)
	if !ok {
		return nil
	}
	if err := m.store.Destroy(c.Context(), id); err != nil && !errors.Is(err, port.ErrSessionNotFound) {
		return err
	}
	return nil
}

// Cookie writes a cookie with the same security attributes as the session
// cookie.
func (m *Sessions) Cookie(c fiber.Ctx, name, value string, maxAge time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   m.cfg.Secure,
		HTTPOnly: true,
		SameSite: m.sameSite(),
	})
}

// Expire deletes the cookie name on the client.
func (m *Sessions) Expire(c fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(1, 0),
		Secure:   m.cfg.Secure,
		HTTPOnly: true,
		SameSite: m.sameSite(),
	})
}

func (m *Sessions) setCookie(c fiber.Ctx, id string) {
	m.Cookie(c, m.cfg.CookieName, id+"."+signHS256(id, m.cfg.Secret), m.cfg.MaxAge)
}

func (m *Sessions) clearCookie(c fiber.Ctx) {
	m.Expire(c, m.cfg.CookieName)
}

// cookieID returns the session id carried by a correctly signed cookie.
func (m *Sessions) cookieID(c fiber.Ctx) (string, bool) {
	raw := c.Cookies(m.cfg.CookieName)
	if raw == "" {
		return "", false
	}
	id, sig, ok := strings.Cut(raw, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(signHS256(id, m.cfg.Secret))) {
		return "", false
	}
	return id, true
}

func (m *Sessions) sameSite() string {
	if strings.EqualFold(m.cfg.SameSite, "strict") {
		return fiber.CookieSameSiteStrictMode
	}
	return fiber.CookieSameSiteLaxMode
}

func signHS256(input, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
