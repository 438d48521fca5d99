package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestIDLogMiddleware stores the Fiber request ID and a request-scoped
// logger in the user context, so the analysis pipeline can tag its log lines
// with the request that triggered it.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		if rid == "" {
			return c.Next()
		}

		reqLogger := slog.Default().With("request_id", rid)

		ctx := context.WithValue(c.Context(), requestIDKey, rid)
		ctx = context.WithValue(ctx, ctxKey("logger"), reqLogger)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// LoggerFromCtx extracts the per-request slog.Logger from a context, falling
// back to the default logger.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey("logger")).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
