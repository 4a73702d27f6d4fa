package handler

import (
	"github.com/arturoeanton/agency-backoffice/internal/middleware"
	"github.com/gofiber/fiber/v3"
)

// Routes bundles the handlers served under /api.
type Routes struct {
	Auth          *AuthHandler
	Contacts      *ContactHandler
	Consultations *ConsultationHandler
	Newsletter    *NewsletterHandler
	Admin         *AdminHandler
	Audit         *AuditHandler

	// Gate is the authentication middleware; admin routes add RequireAdmin on top.
	Gate fiber.Handler
}

// Mount registers every route on app.
func (r Routes) Mount(app *fiber.App) {
	api := app.Group("/api")

	// ── Public ──────────────────────────────────────────────────────────
	r.Auth.Register(api)
	r.Contacts.Register(api)
	r.Consultations.Register(api)
	r.Newsletter.Register(api)

	// ── Admin ───────────────────────────────────────────────────────────
	admin := api.Group("/admin", r.Gate, middleware.RequireAdmin())
	r.Contacts.RegisterAdmin(admin)
	r.Consultations.RegisterAdmin(admin)
	r.Newsletter.RegisterAdmin(admin)
	r.Admin.RegisterAdmin(admin)
	r.Audit.RegisterAdmin(admin)
}
