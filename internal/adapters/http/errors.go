package http

import "github.com/gofiber/fiber/v2"

// APIError is the error envelope for /v1 routes. The /api/query
// out-of-bounds answer keeps the map client's bare `error` shape and is the
// one response that bypasses it.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, aoi_too_large, internal_error, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}
