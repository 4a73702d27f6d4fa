package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Port        string
	AppName     string
	Environment string // production, development, test

	// Database
	DatabaseURL string

	// Sessions
	SessionSecret        string
	SessionCookieName    string
	SessionMaxAge        time.Duration
	SessionSweepInterval time.Duration
	SessionBackend       string // memory, redis
	RedisURL             string

	// OAuth2: Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// OAuth2: GitHub
	GitHubClientID     string
	GitHubClientSecret string
	GitHubRedirectURL  string

	// Login policy
	RequireVerifiedAccount bool

	// Seed admin account, created or promoted at start-up when both are set
	SeedAdminEmail    string
	SeedAdminPassword string

	// SMTP (empty host = log-only notifier)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Frontend
	FrontendURL string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	env := strings.ToLower(envOrDefault("APP_ENV", "development"))

	return &Config{
		Port:        envOrDefault("PORT", "3001"),
		AppName:     envOrDefault("APP_NAME", "Agency Back Office"),
		Environment: env,

		DatabaseURL: os.Getenv("DATABASE_URL"),

		SessionSecret:        os.Getenv("SESSION_SECRET"),
		SessionCookieName:    envOrDefault("SESSION_COOKIE_NAME", "agency.sid"),
		SessionMaxAge:        time.Duration(envOrDefaultInt("SESSION_MAX_AGE_HOURS", 24)) * time.Hour,
		SessionSweepInterval: envOrDefaultDuration("SESSION_SWEEP_INTERVAL", 24*time.Hour),
		SessionBackend:       strings.ToLower(envOrDefault("SESSION_BACKEND", "memory")),
		RedisURL:             envOrDefault("REDIS_URL", "redis://localhost:6379/0"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  envOrDefault("GOOGLE_REDIRECT_URL", "http://localhost:3001/api/auth/google/callback"),

		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubRedirectURL:  envOrDefault("GITHUB_REDIRECT_URL", "http://localhost:3001/api/auth/github/callback"),

		RequireVerifiedAccount: envOrDefaultBool("REQUIRE_VERIFIED_ACCOUNT", env == "production"),

		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     envOrDefaultInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     envOrDefault("SMTP_FROM", "no-reply@localhost"),

		FrontendURL: strings.TrimSuffix(envOrDefault("FRONTEND_URL", "http://localhost:3000"), "/"),
	}
}

// IsProduction reports whether the process runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GoogleEnabled reports whether Google OAuth credentials are configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// GitHubEnabled reports whether GitHub OAuth credentials are configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// CookieSameSite returns the SameSite policy for the session cookie.
func (c *Config) CookieSameSite() string {
	if c.IsProduction() {
		return "strict"
	}
	return "lax"
}

// Validate rejects configurations that have no safe default.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.SessionSecret == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("SESSION_SECRET is required in production"))
		} else {
			c.SessionSecret = "dev-only-session-secret"
		}
	}
	if c.SessionBackend != "memory" && c.SessionBackend != "redis" {
		errs = append(errs, errors.New("SESSION_BACKEND must be memory or redis"))
	}
	if (c.SeedAdminEmail == "") != (c.SeedAdminPassword == "") {
		errs = append(errs, errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set together"))
	}
	if c.SessionMaxAge <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_AGE_HOURS must be positive"))
	}
	if c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_SWEEP_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return fallback
}
