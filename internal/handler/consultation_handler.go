package handler

import (
	"context"
	"strings"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/gofiber/fiber/v3"
)

// ConsultationStore persists consultation requests.
type ConsultationStore interface {
	CreateConsultation(ctx context.Context, c *domain.Consultation) (*domain.Consultation, error)
	ListConsultations(ctx context.Context, status string) ([]domain.Consultation, error)
	UpdateConsultationStatus(ctx context.Context, id int64, status string) error
}

// ConsultationHandler handles consultation bookings.
type ConsultationHandler struct {
	store ConsultationStore
}

// NewConsultationHandler creates a new consultation handler.
func NewConsultationHandler(store ConsultationStore) *ConsultationHandler {
	return &ConsultationHandler{store: store}
}

// Register sets up the public booking route.
func (h *ConsultationHandler) Register(router fiber.Router) {
	router.Post("/consultations", h.Book)
}

// RegisterAdmin sets up the admin consultation routes.
func (h *ConsultationHandler) RegisterAdmin(admin fiber.Router) {
	consultations := admin.Group("/consultations")
	consultations.Get("/", h.List)
	consultations.Patch("/:id", h.UpdateStatus)
}

// Book stores a consultation request as pending.
func (h *ConsultationHandler) Book(c fiber.Ctx) error {
	var req domain.Consultation
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Service = strings.TrimSpace(req.Service)

	if msg := validateIntake(req.Name, req.Email, req.Message); msg != "" {
		return fail(c, fiber.StatusBadRequest, msg)
	}
	if req.Service == "" {
		return fail(c, fiber.StatusBadRequest, "service is required")
	}
	req.Status = domain.ConsultationStatusPending

	consultation, err := h.store.CreateConsultation(c.Context(), &req)
	if err != nil {
		return failErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "consultation requested",
		"id":      consultation.ID,
	})
}

// List returns consultations, optionally filtered by ?status=.
func (h *ConsultationHandler) List(c fiber.Ctx) error {
	status := c.Query("status")
	if status != "" && !domain.ValidConsultationStatus(status) {
		return fail(c, fiber.StatusBadRequest, "invalid status")
	}
	consultations, err := h.store.ListConsultations(c.Context(), status)
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "consultations": consultations, "count": len(consultations)})
}

// UpdateStatus moves a consultation through its workflow.
func (h *ConsultationHandler) UpdateStatus(c fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	if !domain.ValidConsultationStatus(req.Status) {
		return fail(c, fiber.StatusBadRequest, "invalid status")
	}
	if err := h.store.UpdateConsultationStatus(c.Context(), id, req.Status); err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
