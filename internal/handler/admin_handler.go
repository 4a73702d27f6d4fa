package handler

import (
	"context"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/middleware"
	"github.com/gofiber/fiber/v3"
)

// UserAdminStore is the subset of the credential store the admin API needs.
type UserAdminStore interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (*domain.User, error)
}

// StatsStore computes dashboard counters.
type StatsStore interface {
	DashboardStats(ctx context.Context) (*domain.DashboardStats, error)
}

// AdminHandler handles user management and dashboard statistics.
type AdminHandler struct {
	users UserAdminStore
	stats StatsStore
	audit middleware.AuditWriter
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(users UserAdminStore, stats StatsStore, audit middleware.AuditWriter) *AdminHandler {
	return &AdminHandler{users: users, stats: stats, audit: audit}
}

// RegisterAdmin sets up the admin routes on an already gated router.
func (h *AdminHandler) RegisterAdmin(admin fiber.Router) {
	admin.Get("/stats", h.Stats)
	users := admin.Group("/users")
	users.Get("/", h.ListUsers)
	users.Patch("/:id", h.UpdateUser)
}

// Stats returns dashboard counters.
func (h *AdminHandler) Stats(c fiber.Ctx) error {
	stats, err := h.stats.DashboardStats(c.Context())
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "stats": stats})
}

// ListUsers returns every account.
func (h *AdminHandler) ListUsers(c fiber.Ctx) error {
	users, err := h.users.ListUsers(c.Context())
	if err != nil {
		return failErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "users": users, "count": len(users)})
}

type userPatchRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// UpdateUser changes the role or active flag of an account. Admins cannot
// demote or deactivate themselves.
func (h *AdminHandler) UpdateUser(c fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return fail(c, fiber.StatusBadRequest, "invalid id")
	}
	var req userPatchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, msgInvalidBody)
	}

	upd := domain.UserUpdate{Role: req.Role, IsActive: req.IsActive}
	if upd.Empty() {
		return fail(c, fiber.StatusBadRequest, "nothing to update")
	}
	if req.Role != nil && *req.Role != domain.RoleAdmin && *req.Role != domain.RoleUser {
		return fail(c, fiber.StatusBadRequest, "invalid role")
	}

	me := middleware.GetCurrentUser(c)
	if me != nil && me.ID == id {
		if (req.Role != nil && *req.Role != domain.RoleAdmin) || (req.IsActive != nil && !*req.IsActive) {
			return fail(c, fiber.StatusBadRequest, "cannot revoke your own access")
		}
	}

	user, err := h.users.UpdateUser(c.Context(), id, upd)
	if err != nil {
		return failErr(c, err)
	}

	var actor int64
	if me != nil {
		actor = me.ID
	}
	middleware.RecordEvent(h.audit, c, actor, domain.AuditActionAdminUpdate, "user", map[string]any{
		"target_id": id,
		"role":      user.Role,
		"is_active": user.IsActive,
	})
	return c.JSON(fiber.Map{"success": true, "user": user})
}
