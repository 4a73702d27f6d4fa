package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/arturoeanton/agency-backoffice/internal/service"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminGate(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "user@test.com", "user-password", domain.RoleUser, true)
	env.addUser(t, "admin@test.com", "admin-password", domain.RoleAdmin, true)

	anon := env.do(t, http.MethodGet, "/api/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, anon.status)

	userCk := env.login(t, "user@test.com", "user-password")
	denied := env.do(t, http.MethodGet, "/api/admin/stats", nil, userCk)
	assert.Equal(t, http.StatusForbidden, denied.status)
	assert.Equal(t, "forbidden", denied.body["message"])

	adminCk := env.login(t, "admin@test.com", "admin-password")
	ok := env.do(t, http.MethodGet, "/api/admin/stats", nil, adminCk)
	require.Equal(t, http.StatusOK, ok.status)
	assert.Contains(t, ok.body, "stats")
}

func TestSeedAdminCanReachAdminRoutes(t *testing.T) {
	env := newTestEnv(t, withPolicy(service.LoginPolicy{RequireVerifiedAccount: true}))
	_, err := service.SeedAdmin(context.Background(), env.users, testHasher, "owner@agency.test", "seed-password")
	require.NoError(t, err)

	ck := env.login(t, "owner@agency.test", "seed-password")
	res := env.do(t, http.MethodGet, "/api/admin/users", nil, ck)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, float64(1), res.body["count"])
}

func TestAdminUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin@test.com", "admin-password", domain.RoleAdmin, true)
	member := env.addUser(t, "member@test.com", "member-password", domain.RoleUser, true)
	ck := env.login(t, "admin@test.com", "admin-password")

	path := fmt.Sprintf("/api/admin/users/%d", member.ID)

	promote := env.do(t, http.MethodPatch, path, map[string]any{"role": "admin"}, ck)
	require.Equal(t, http.StatusOK, promote.status)
	assert.Equal(t, domain.RoleAdmin, env.users.Snapshot(member.ID).Role)

	bad := env.do(t, http.MethodPatch, path, map[string]any{"role": "root"}, ck)
	assert.Equal(t, http.StatusBadRequest, bad.status)

	empty := env.do(t, http.MethodPatch, path, map[string]any{}, ck)
	assert.Equal(t, http.StatusBadRequest, empty.status)

	self := env.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", admin.ID), map[string]any{"isActive": false}, ck)
	assert.Equal(t, http.StatusBadRequest, self.status)
	assert.True(t, env.users.Snapshot(admin.ID).IsActive)

	missing := env.do(t, http.MethodPatch, "/api/admin/users/999", map[string]any{"isActive": false}, ck)
	assert.Equal(t, http.StatusNotFound, missing.status)
}

func TestDemotedAdminLosesAccess(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "a1@test.com", "admin-password", domain.RoleAdmin, true)
	a2 := env.addUser(t, "a2@test.com", "admin-password", domain.RoleAdmin, true)
	ck1 := env.login(t, "a1@test.com", "admin-password")
	ck2 := env.login(t, "a2@test.com", "admin-password")

	res := env.do(t, http.MethodPatch, fmt.Sprintf("/api/admin/users/%d", a2.ID), map[string]any{"role": "user"}, ck1)
	require.Equal(t, http.StatusOK, res.status)

	denied := env.do(t, http.MethodGet, "/api/admin/users", nil, ck2)
	assert.Equal(t, http.StatusForbidden, denied.status)
}

func TestAuditLogs(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "admin@test.com", "admin-password", domain.RoleAdmin, true)
	ck := env.login(t, "admin@test.com", "admin-password")

	require.Eventually(t, func() bool {
		res := env.do(t, http.MethodGet, "/api/admin/audit/logs?action=login", nil, ck)
		return res.status == http.StatusOK && res.body["count"] == float64(1)
	}, testWait, testTick)

	res := env.do(t, http.MethodGet, "/api/admin/audit/logs?limit=abc", nil, ck)
	assert.Equal(t, http.StatusOK, res.status)
}

func TestErrorHandler(t *testing.T) {
	boom := func(c fiber.Ctx) error { return errors.New("pq: password authentication failed") }

	prod := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(true)})
	prod.Get("/", boom)
	dev := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(false)})
	dev.Get("/", boom)

	for name, app := range map[string]*fiber.App{"production": prod, "development": dev} {
		env := &testEnv{app: app}
		res := env.do(t, http.MethodGet, "/", nil)
		assert.Equal(t, http.StatusInternalServerError, res.status, name)
		assert.Equal(t, false, res.body["success"], name)
		if name == "production" {
			assert.Equal(t, "internal server error", res.body["message"])
		} else {
			assert.Contains(t, res.body["message"], "password authentication failed")
		}
	}
}
