package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ticketboss/reservation-api/internal/config"
	"github.com/ticketboss/reservation-api/internal/handler"
	"github.com/ticketboss/reservation-api/internal/middleware"
)

// RegisterRoutes wires the full HTTP surface onto the provided Echo
// instance.  The write endpoints sit behind the Redis token bucket and
// the summary read sits behind the response cache; both middleware
// degrade to pass-throughs when rdb is nil.
func RegisterRoutes(e *echo.Echo, h *handler.ReservationHandler, rdb *redis.Client) {
	// Liveness probe for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// OpenAPI document, embedded at build time.
	e.GET("/docs.json", handler.Docs)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	g := e.Group("/v1")
	// Reserve seats for the event.
	g.POST("/reservations", h.Create, limiter)
	// Cancel a reservation and return its seats to the pool.
	g.DELETE("/reservations/:reservationId", h.Cancel, limiter)
	// Read-only summary; safe to serve from cache.
	g.GET("/reservations", h.Summary, cache)
}
