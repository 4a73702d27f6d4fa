package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/arturoeanton/agency-backoffice/internal/port"
	"github.com/gofiber/fiber/v3"
)

const msgInvalidBody = "invalid request body"

func fail(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// failErr answers with the status and message an error class maps to.
func failErr(c fiber.Ctx, err error) error {
	status, message := classify(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
	}
	return fail(c, status, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, port.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable, port.ErrStorageUnavailable.Error()
	case errors.Is(err, port.ErrMissingCredentials),
		errors.Is(err, port.ErrInvalidEmail),
		errors.Is(err, port.ErrWeakPassword),
		errors.Is(err, port.ErrPasswordTooLong),
		errors.Is(err, port.ErrInvalidToken),
		errors.Is(err, port.ErrPasswordMismatch):
		return fiber.StatusBadRequest, rootMessage(err)
	case errors.Is(err, port.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, port.ErrInvalidCredentials.Error()
	case errors.Is(err, port.ErrUnauthorized):
		return fiber.StatusUnauthorized, "not authenticated"
	case errors.Is(err, port.ErrAccountNotVerified):
		return fiber.StatusForbidden, port.ErrAccountNotVerified.Error()
	case errors.Is(err, port.ErrEmailTaken):
		return fiber.StatusConflict, port.ErrEmailTaken.Error()
	case errors.Is(err, port.ErrUsernameTaken):
		return fiber.StatusConflict, port.ErrUsernameTaken.Error()
	case errors.Is(err, port.ErrUserNotFound):
		return fiber.StatusNotFound, port.ErrUserNotFound.Error()
	case errors.Is(err, port.ErrNotFound), errors.Is(err, port.ErrUnknownProvider):
		return fiber.StatusNotFound, "not found"
	}
	return fiber.StatusInternalServerError, "internal server error"
}

// rootMessage returns the text of the sentinel err wraps, without the
// operation prefixes added on the way up.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		port.ErrMissingCredentials, port.ErrInvalidEmail, port.ErrWeakPassword, port.ErrPasswordTooLong,
		port.ErrInvalidToken, port.ErrPasswordMismatch,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func paramID(c fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ErrorHandler renders errors that escaped the handlers. Outside production
// the error text is returned to help debugging.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			slog.Error("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
			if !production {
				message = err.Error()
			}
		}
		return fail(c, code, message)
	}
}
