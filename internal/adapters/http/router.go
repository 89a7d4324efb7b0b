package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/globetrace/internal/pkg/metrics"
)

const (
	// APIVersion is sent in the X-API-Version header.
	APIVersion = "1.0.0"

	requestTimeout = 15 * time.Second
)

// RouteOptions tunes the route table.
type RouteOptions struct {
	// TraceTimeout bounds the endpoints that run a traceroute.
	TraceTimeout time.Duration
	// RateLimit is the number of requests allowed per IP per minute.
	RateLimit int
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, opts RouteOptions) {
	if opts.TraceTimeout <= 0 {
		opts.TraceTimeout = 90 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 120
	}

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Scenes carry the full sphere mesh, so compression pays off.
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	app.Use(AccessLogMiddleware())

	app.Use(limiter.New(limiter.Config{
		Max:        opts.RateLimit,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", APIVersion)
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	app.Get("/", IndexHandler())

	v1 := app.Group("/v1")
	v1.Get("/project", timeout.NewWithContext(ProjectHandler(deps), requestTimeout))
	v1.Post("/project", timeout.NewWithContext(ProjectBatchHandler(deps), requestTimeout))
	v1.Get("/arc", timeout.NewWithContext(ArcHandler(deps), requestTimeout))
	v1.Get("/geolocate/:ip", timeout.NewWithContext(GeolocateHandler(deps), requestTimeout))

	// Anything that may run traceroute gets the longer budget.
	v1.Get("/scene", timeout.NewWithContext(SceneHandler(deps), opts.TraceTimeout))
	v1.Post("/traces", timeout.NewWithContext(CreateTraceHandler(deps), opts.TraceTimeout))
	v1.Get("/traces", timeout.NewWithContext(ListTracesHandler(deps), requestTimeout))
	v1.Get("/traces/:id", timeout.NewWithContext(GetTraceHandler(deps), requestTimeout))
	v1.Get("/traces/:id/scene", timeout.NewWithContext(TraceSceneHandler(deps), requestTimeout))

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), opts.TraceTimeout))

	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
