package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/adapter/auth"
	"github.com/arturoeanton/agency-backoffice/internal/adapter/notify"
	"github.com/arturoeanton/agency-backoffice/internal/adapter/password"
	"github.com/arturoeanton/agency-backoffice/internal/adapter/session"
	"github.com/arturoeanton/agency-backoffice/internal/adapter/store"
	"github.com/arturoeanton/agency-backoffice/internal/handler"
	"github.com/arturoeanton/agency-backoffice/internal/middleware"
	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/arturoeanton/agency-backoffice/internal/service"
	"github.com/arturoeanton/agency-backoffice/pkg/config"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()
	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("🚀 Starting "+cfg.AppName,
		"port", cfg.Port,
		"env", cfg.Environment,
		"session_backend", cfg.SessionBackend,
		"require_verified", cfg.RequireVerifiedAccount,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	if err := pgStore.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// ── Sessions ─────────────────────────────────────────────────────────
	var sessionStore port.SessionStore
	switch cfg.SessionBackend {
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		sessionStore = session.NewRedisStore(client)
	default:
		mem := session.NewMemoryStore()
		go mem.RunSweeper(ctx, cfg.SessionSweepInterval)
		sessionStore = mem
	}

	// ── Adapters ─────────────────────────────────────────────────────────
	hasher := password.NewBcryptHasher(bcrypt.DefaultCost)

	var notifier port.Notifier
	if cfg.SMTPHost != "" {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, cfg.FrontendURL)
	} else {
		slog.Warn("SMTP_HOST not set, emails are only logged")
		notifier = notify.NewLogNotifier(cfg.FrontendURL)
	}

	providers := port.AuthProviderRegistry{}
	if cfg.GoogleEnabled() {
		providers["google"] = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}
	if cfg.GitHubEnabled() {
		providers["github"] = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL)
	}

	// ── Services ─────────────────────────────────────────────────────────
	policy := service.LoginPolicy{RequireVerifiedAccount: cfg.RequireVerifiedAccount}
	authService := service.NewAuthService(pgStore, hasher, notifier, policy)
	oauthService := service.NewOAuthService(providers, pgStore, hasher, notifier)

	if _, err := service.SeedAdmin(ctx, pgStore, hasher, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		slog.Error("failed to seed admin account", "error", err)
		os.Exit(1)
	}

	sessions := middleware.NewSessions(sessionStore, middleware.SessionConfig{
		CookieName: cfg.SessionCookieName,
		Secret:     cfg.SessionSecret,
		MaxAge:     cfg.SessionMaxAge,
		Secure:     cfg.IsProduction(),
		SameSite:   cfg.CookieSameSite(),
	})
	gate := middleware.RequireAuth(sessions, pgStore)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: handler.ErrorHandler(cfg.IsProduction()),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: true,
	}))

	// Audit middleware (logs all requests)
	app.Use(middleware.AuditMiddleware(pgStore))

	// Health check
	app.Get("/api/health", func(c fiber.Ctx) error {
		status, code := "healthy", fiber.StatusOK
		if err := pgStore.Ping(c.Context()); err != nil {
			status, code = "degraded", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"app":    cfg.AppName,
		})
	})

	handler.Routes{
		Auth:          handler.NewAuthHandler(authService, oauthService, sessions, gate, pgStore, cfg.FrontendURL),
		Contacts:      handler.NewContactHandler(pgStore),
		Consultations: handler.NewConsultationHandler(pgStore),
		Newsletter:    handler.NewNewsletterHandler(pgStore),
		Admin:         handler.NewAdminHandler(pgStore, pgStore, pgStore),
		Audit:         handler.NewAuditHandler(pgStore),
		Gate:          gate,
	}.Mount(app)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
