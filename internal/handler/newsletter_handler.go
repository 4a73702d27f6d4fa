package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/gofiber/fiber/v3"
)

// NewsletterStore persists newsletter subscriptions.
type NewsletterStore interface {
	Subscribe(ctx context.Context, email string) (*domain.NewsletterSubscriber, error)
	Unsubscribe(ctx context.Context, email string) error
	UnsubscribeByID(ctx context.Context, id int64) error
	ListSubscribers(ctx context.Context, activeOnly bool) ([]domain.NewsletterSubscriber, error)
}

// NewsletterHandler handles newsletter sign-ups.
type NewsletterHandler struct {
	store NewsletterStore
}

// NewNewsletterHandler creates a new newsletter handler.
func NewNewsletterHandler(store NewsletterStore) *NewsletterHandler {
	return &NewsletterHandler{store: store}
}

// Register sets up the public newsletter routes.
func (h *NewsletterHandler) Register(router fiber.Router) {
	nl := router.Group("/newsletter")
	nl.Post("/subscribe", h.Subscribe)
	nl.Post("/unsubscribe", h.Unsubscribe)
}

// RegisterAdmin sets up the admin newsletter routes.
func (h *NewsletterHandler) RegisterAdmin(admin fiber.Router) {
	nl := admin.Group("/newsletter")
	nl.Get("/", h.List)
	nl.Delete("/:id", h.Remove)
}

// Subscribe adds or re-activates an address.
func (h *NewsletterHandler) Subscribe(c fiber.Ctx) error {
	var req emailRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	email := strings.TrimSpace(req.Email)
	if !validEmail(email) {
		return fail(c, fiber.StatusBadRequest, "a valid email is required")
	}
	if _, err := h.store.Subscribe(c.Context(), email); err != nil {
		return failErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "subscribed"})
}

// Unsubscribe deactivates an address. Unknown addresses are not reported.
func (h *NewsletterHandler) Unsubscribe(c fiber.Ctx) error {
	var req emailRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	email := strings.TrimSpace(req.Email)
	if !validEmail(email) {
		return fail(c, fiber.StatusBadRequest, "a valid email is required")
	}
	if err := h.store.Unsubscribe(c.Context(), email); err != nil && !errors.Is(err, port.ErrNotFound) {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "unsubscribed"})
}

// List returns subscribers; ?active=true keeps only active ones.
func (h *NewsletterHandler) List(c fiber.Ctx) error {
	activeOnly := c.Query("active") == "true"
	subs, err := h.store.ListSubscribers(c.Context(), activeOnly)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "subscribers": subs, "count": len(subs)})
}

// Remove unsubscribes a subscriber by id.
func (h *NewsletterHandler) Remove(c fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	if err := h.store.UnsubscribeByID(c.Context(), id); err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
