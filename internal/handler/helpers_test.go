package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/adapter/password"
	"github.com/arturoeanton/agency-backoffice/internal/adapter/session"
	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/middleware"
	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/arturoeanton/agency-backoffice/internal/service"
	"github.com/arturoeanton/agency-backoffice/internal/testutil"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testFrontend = "http://frontend.test"
	cookieName   = "agency.sid"
)

var testHasher = password.NewBcryptHasher(bcrypt.MinCost)

type testEnv struct {
	app      *fiber.App
	users    *testutil.Users
	content  *testutil.Content
	notifier *testutil.Notifier
	sessions *session.MemoryStore
	google   *testutil.Provider
}

type envOption func(*envConfig)

type envConfig struct {
	policy     service.LoginPolicy
	production bool
}

func withPolicy(p service.LoginPolicy) envOption {
	return func(c *envConfig) { c.policy = p }
}

func withProduction() envOption {
	return func(c *envConfig) { c.production = true }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	var cfg envConfig
	for _, o := range opts {
		o(&cfg)
	}

	env := &testEnv{
		users:    testutil.NewUsers(),
		content:  testutil.NewContent(),
		notifier: testutil.NewNotifier(16),
		sessions: session.NewMemoryStore(),
		google: &testutil.Provider{
			Name:    "google",
			Profile: &domain.OAuthProfile{Provider: "google", ProviderID: "g-1", Email: "new@x.com", Name: "New User"},
		},
	}

	sessions := middleware.NewSessions(env.sessions, middleware.SessionConfig{
		CookieName: cookieName,
		Secret:     "handler-test-secret",
		MaxAge:     24 * time.Hour,
	})
	gate := middleware.RequireAuth(sessions, env.users)

	authSvc := service.NewAuthService(env.users, testHasher, env.notifier, cfg.policy)
	oauthSvc := service.NewOAuthService(port.AuthProviderRegistry{"google": env.google}, env.users, testHasher, env.notifier)

	env.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler(cfg.production)})
	env.app.Use(middleware.AuditMiddleware(env.content))
	Routes{
		Auth:          NewAuthHandler(authSvc, oauthSvc, sessions, gate, env.content, testFrontend),
		Contacts:      NewContactHandler(env.content),
		Consultations: NewConsultationHandler(env.content),
		Newsletter:    NewNewsletterHandler(env.content),
		Admin:         NewAdminHandler(env.users, env.content, env.content),
		Audit:         NewAuditHandler(env.content),
		Gate:          gate,
	}.Mount(env.app)
	return env
}

func (e *testEnv) addUser(t *testing.T, email, pw, role string, active bool) *domain.User {
	t.Helper()
	hash, err := testHasher.Hash(pw)
	require.NoError(t, err)
	return e.users.Add(domain.User{Username: email, Email: email, PasswordHash: hash, Role: role, IsActive: active})
}

type result struct {
	status   int
	body     map[string]any
	cookies  []*http.Cookie
	location string
}

func (r result) cookie(name string) *http.Cookie {
	for _, c := range r.cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (r result) sessionCookie() string {
	if c := r.cookie(cookieName); c != nil {
		return c.Value
	}
	return ""
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) result {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := result{status: resp.StatusCode, cookies: resp.Cookies(), location: resp.Header.Get("Location")}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out.body)
	}
	return out
}

func (e *testEnv) login(t *testing.T, email, pw string) *http.Cookie {
	t.Helper()
	res := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": pw})
	require.Equal(t, http.StatusOK, res.status, res.body)
	value := res.sessionCookie()
	require.NotEmpty(t, value)
	return &http.Cookie{Name: cookieName, Value: value}
}
