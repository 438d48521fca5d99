package http

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLogMiddleware emits one structured slog line per request. Prometheus
// scrapes and health checks are skipped so analysis traffic stays readable.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		requestID := c.Get(fiber.HeaderXRequestID, "unknown")

		err := c.Next()

		if path == "/metrics" || path == "/v1/health" || path == "/v1/ready" {
			return err
		}

		status := c.Response().StatusCode()
		latency := time.Since(start)
		bytesOut := len(c.Response().Body())

		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("path", path),
			slog.String("ip", c.IP()),
			slog.Int("status", status),
			slog.String("latency", latency.String()),
			slog.Int("bytes_out", bytesOut),
			slog.String("request_id", requestID),
		}

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		}

		slog.LogAttrs(c.Context(), level, fmt.Sprintf("%s %s", method, path), attrs...)

		return err
	}
}
