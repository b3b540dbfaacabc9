package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"filehost/internal/http/middleware"
	"filehost/internal/upload"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeUploadError maps pipeline error types onto the standard envelope.
// Validation messages are built from field names and limits, so they are safe
// to surface verbatim.
func writeUploadError(c *fiber.Ctx, err error) error {
	var vErr *upload.ValidationError
	if errors.As(err, &vErr) {
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", vErr.Error())
	}
	var incErr *upload.IncompleteUploadError
	if errors.As(err, &incErr) {
		return writeError(c, fiber.StatusConflict, "INCOMPLETE_UPLOAD", incErr.Error())
	}
	if errors.Is(err, upload.ErrSessionNotFound) {
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "upload session not found")
	}
	var sErr *upload.StorageError
	if errors.As(err, &sErr) {
		return writeError(c, fiber.StatusInternalServerError, "STORAGE_ERROR", "storage failure")
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "payload too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
