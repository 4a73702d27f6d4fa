package middleware

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type auditRecord struct {
	userID, action, resource, resourceID, details string
}

type chanWriter chan auditRecord

func (w chanWriter) WriteAudit(userID, action, resource, resourceID, details, _, _ string) error {
	w <- auditRecord{userID, action, resource, resourceID, details}
	return nil
}

func TestAuditMiddleware_RecordsUser(t *testing.T) {
	w := make(chanWriter, 1)
	app := fiber.New()
	app.Use(AuditMiddleware(w))
	app.Get("/x", func(c fiber.Ctx) error {
		c.Locals(localsUser, &domain.User{ID: 42})
		return c.SendStatus(fiber.StatusTeapot)
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/x", nil))
	require.NoError(t, err)

	select {
	case rec := <-w:
		assert.Equal(t, "42", rec.userID)
		assert.Equal(t, domain.AuditActionHTTPRequest, rec.action)
		assert.Equal(t, "/x", rec.resourceID)
		assert.Contains(t, rec.details, `"status":418`)
	case <-time.After(2 * time.Second):
		t.Fatal("audit record not written")
	}
}

func TestRecordEvent_Anonymous(t *testing.T) {
	w := make(chanWriter, 1)
	app := fiber.New()
	app.Post("/login", func(c fiber.Ctx) error {
		RecordEvent(w, c, 0, domain.AuditActionLoginFailure, "auth", map[string]any{"email": "a@x.com"})
		return nil
	})

	_, err := app.Test(httptest.NewRequest(http.MethodPost, "/login", nil))
	require.NoError(t, err)

	select {
	case rec := <-w:
		assert.Equal(t, "anonymous", rec.userID)
		assert.Equal(t, domain.AuditActionLoginFailure, rec.action)
	case <-time.After(2 * time.Second):
		t.Fatal("audit record not written")
	}
}

type requestRecord struct {
	path, userAgent string
}

type heldWriter chan requestRecord

func (w heldWriter) WriteAudit(_, _, _, resourceID, _, _, userAgent string) error {
	w <- requestRecord{resourceID, userAgent}
	return nil
}

func TestAuditMiddleware_ValuesOutliveRequest(t *testing.T) {
	// unbuffered: every write waits until all requests have finished and
	// their contexts have gone back to the pool
	w := make(heldWriter)
	app := fiber.New()
	app.Use(AuditMiddleware(w))
	app.Get("/:slot", func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	var want []string
	for _, slot := range []string{"aaaa", "bbbb", "cccc", "dddd"} {
		req := httptest.NewRequest(http.MethodGet, "/"+slot, nil)
		req.Header.Set("User-Agent", "agent-"+slot)
		_, err := app.Test(req)
		require.NoError(t, err)
		want = append(want, "/"+slot+" agent-"+slot)
	}

	var got []string
	for range want {
		select {
		case rec := <-w:
			got = append(got, rec.path+" "+rec.userAgent)
		case <-time.After(2 * time.Second):
			t.Fatal("audit record not written")
		}
	}
	sort.Strings(got)
	assert.Equal(t, want, got)
}
