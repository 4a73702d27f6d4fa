package middleware

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/arturoeanton/agency-backoffice/internal/domain"
	"github.com/gofiber/fiber/v3"
)

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error
}

// AuditMiddleware logs every request for compliance purposes.
func AuditMiddleware(writer AuditWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Capture request data BEFORE handler execution (Fiber reuses context objects)
		method := strings.Clone(c.Method())
		path := strings.Clone(c.Path())
		ip := strings.Clone(c.IP())
		userAgent := strings.Clone(c.Get("User-Agent"))

		err := c.Next()

		userID := "anonymous"
		if u := GetCurrentUser(c); u != nil {
			userID = strconv.FormatInt(u.ID, 10)
		}

		details := map[string]any{
			"method":      method,
			"path":        path,
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
		}

		writeAsync(writer, userID, domain.AuditActionHTTPRequest, "api", path, details, ip, userAgent)
		return err
	}
}

// RecordEvent writes a single audit event about userID (0 when unknown)
// without blocking the request.
func RecordEvent(writer AuditWriter, c fiber.Ctx, userID int64, action, resource string, details map[string]any) {
	if writer == nil {
		return
	}
	uid := "anonymous"
	if userID != 0 {
		uid = strconv.FormatInt(userID, 10)
	}
	writeAsync(writer, uid, action, resource, uid, details, strings.Clone(c.IP()), strings.Clone(c.Get("User-Agent")))
}

// writeAsync persists an audit record in the background; all arguments must
// already be copied out of the Fiber context.
func writeAsync(writer AuditWriter, userID, action, resource, resourceID string, details map[string]any, ip, userAgent string) {
	detailsJSON, _ := json.Marshal(details)
	go func() {
		if err := writer.WriteAudit(userID, action, resource, resourceID, string(detailsJSON), ip, userAgent); err != nil {
			slog.Error("failed to write audit log", "action", action, "error", err)
		}
	}()
}
