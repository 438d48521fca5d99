package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/rucachi/NGII-ICUH/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 60 requests per minute per IP. Analyses are heavy, so
	// the cap is stricter than a plain read API.
	app.Use(limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Map-client API. The synchronous analysis can clip and score a large
	// AOI, so it gets a generous timeout.
	api := app.Group("/api")
	api.Get("/query", timeout.NewWithContext(QueryHandler(deps), 15*time.Second))
	api.Post("/analyze_aoi", timeout.NewWithContext(AnalyzeAOIHandler(deps), 120*time.Second))

	// REST API v1
	v1 := app.Group("/v1")
	v1.Post("/analyses", timeout.NewWithContext(StartAnalysisHandler(deps), 15*time.Second))
	v1.Get("/analyses", timeout.NewWithContext(ListAnalysesHandler(deps), 15*time.Second))
	v1.Get("/analyses/:id", timeout.NewWithContext(GetAnalysisHandler(deps), 15*time.Second))
	v1.Get("/analyses/:id/candidates", timeout.NewWithContext(ListCandidatesHandler(deps), 15*time.Second))
	v1.Get("/analyses/:id/report", timeout.NewWithContext(ReportHandler(deps), 15*time.Second))
	v1.Get("/analyses/:id/export", timeout.NewWithContext(ExportHandler(deps), 15*time.Second))

	v1.Get("/watersheds", timeout.NewWithContext(ListWatershedsHandler(deps), 15*time.Second))
	v1.Get("/watersheds/locate", timeout.NewWithContext(FindWatershedHandler(deps), 15*time.Second))
	v1.Get("/watersheds/:code", timeout.NewWithContext(GetWatershedHandler(deps), 15*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket. The relay needs a live NATS connection; without one the
	// upgrade would panic inside the subscribe call.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if deps.NATS == nil {
			return newError(c, fiber.StatusServiceUnavailable, "unavailable",
				"analysis event stream is not available")
		}
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
