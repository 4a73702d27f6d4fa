package handler

import (
	"context"
	"net/mail"
	"strings"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/gofiber/fiber/v3"
)

const maxMessageLength = 5000

// ContactStore persists contact form submissions.
type ContactStore interface {
	CreateContact(ctx context.Context, c *domain.Contact) (*domain.Contact, error)
	ListContacts(ctx context.Context, status string) ([]domain.Contact, error)
	UpdateContactStatus(ctx context.Context, id int64, status string) error
	DeleteContact(ctx context.Context, id int64) error
}

// ContactHandler handles the contact form and its admin inbox.
type ContactHandler struct {
	store ContactStore
}

// NewContactHandler creates a new contact handler.
func NewContactHandler(store ContactStore) *ContactHandler {
	return &ContactHandler{store: store}
}

// Register sets up the public contact route.
func (h *ContactHandler) Register(router fiber.Router) {
	router.Post("/contact", h.Submit)
}

// RegisterAdmin sets up the admin contact routes on an already gated router.
func (h *ContactHandler) RegisterAdmin(admin fiber.Router) {
	contacts := admin.Group("/contacts")
	contacts.Get("/", h.List)
	contacts.Patch("/:id", h.UpdateStatus)
	contacts.Delete("/:id", h.Delete)
}

// Submit stores a contact form submission.
func (h *ContactHandler) Submit(c fiber.Ctx) error {
	var req domain.Contact
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)

	if msg := validateIntake(req.Name, req.Email, req.Message); msg != "" {
		return fail(c, fiber.StatusBadRequest, msg)
	}
	if req.Message == "" {
		return fail(c, fiber.StatusBadRequest, "message is required")
	}

	contact, err := h.store.CreateContact(c.Context(), &req)
	if err != nil {
		return failErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "thanks, we will get back to you soon",
		"id":      contact.ID,
	})
}

// List returns contacts, optionally filtered by ?status=.
func (h *ContactHandler) List(c fiber.Ctx) error {
	status := c.Query("status")
	if status != "" && !domain.ValidContactStatus(status) {
		return fail(c, fiber.StatusBadRequest, "invalid status")
	}
	contacts, err := h.store.ListContacts(c.Context(), status)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "contacts": contacts, "count": len(contacts)})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves a contact through its workflow.
func (h *ContactHandler) UpdateStatus(c fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	if !domain.ValidContactStatus(req.Status) {
		return fail(c, fiber.StatusBadRequest, "invalid status")
	}
	if err := h.store.UpdateContactStatus(c.Context(), id, req.Status); err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Delete removes a contact.
func (h *ContactHandler) Delete(c fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	if err := h.store.DeleteContact(c.Context(), id); err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// validateIntake checks the fields shared by the public forms and returns a
// message for the first problem found.
func validateIntake(name, email, message string) string {
	if name == "" {
		return "name is required"
	}
	if !validEmail(email) {
		return "a valid email is required"
	}
	if len(message) > maxMessageLength {
		return "message is too long"
	}
	return ""
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
