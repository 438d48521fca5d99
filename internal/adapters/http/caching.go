package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Adds sensible defaults if not already set by the handler.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		// Only set on GET requests
		if c.Method() != "GET" {
			return err
		}

		// Don't override if already set
		if existing := c.Get("Cache-Control"); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		// Default cache times by endpoint pattern
		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10" // Very short for system checks

		case path == "/metrics":
			ttl = "no-cache" // Metrics are real-time

		case path == "/graphql":
			ttl = "private, max-age=0" // GraphQL varies wildly

		case strings.HasPrefix(path, "/api/query"):
			ttl = "public, max-age=300" // 5 min for point queries

		case strings.HasPrefix(path, "/v1/watersheds"):
			ttl = "public, max-age=3600" // 1 hour; basin boundaries are static

		case strings.Contains(path, "/analyses/") &&
			(strings.HasSuffix(path, "/report") || strings.HasSuffix(path, "/export")):
			ttl = "public, max-age=600" // Completed-run downloads are stable

		case strings.HasPrefix(path, "/v1/analyses"):
			ttl = "no-cache" // Run status changes while executing

		case strings.HasPrefix(path, "/v1/"):
			ttl = "public, max-age=300" // 5 min default for API endpoints
		}

		if ttl != "" {
			c.Set("Cache-Control", ttl)
		}

		return err
	}
}
