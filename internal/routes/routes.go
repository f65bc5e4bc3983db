package routes

import (
	"time"

	"github.com/marketloom/user-api/internal/cache"
	"github.com/marketloom/user-api/internal/config"
	"github.com/marketloom/user-api/internal/metrics"
	"github.com/marketloom/user-api/internal/middleware"
	"github.com/marketloom/user-api/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/sirupsen/logrus"
)

// Setup configures all API routes
func Setup(app *fiber.App, cfg *config.Config, logger *logrus.Logger, middlewareManager *middleware.Manager, userStore store.UserStore) {
	// Read cache is optional; a nil cache is a no-op.
	var userCache *cache.UserCache
	if cfg.Cache.Enabled && middlewareManager.RedisClient != nil {
		userCache = cache.New(middlewareManager.RedisClient, cfg.Cache.TTL, logger)
	}

	userHandler := NewUserHandler(userStore, userCache, middlewareManager.TokenService(), logger)
	adminHandler := NewAdminHandler(userStore, userCache, logger)

	// Health check endpoints (no auth required)
	app.Get("/healthz", healthCheck)
	app.Get("/readyz", readinessCheck(middlewareManager))
	app.Get("/version", versionHandler)

	// Metrics endpoint (no auth required)
	app.Get(cfg.Observability.MetricsPath, metrics.PrometheusHandler())

	// Swagger documentation endpoint (no auth required)
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes with middleware
	api := app.Group("/api/v1")
	api.Use(metrics.HTTPMetricsMiddleware())
	api.Use(middlewareManager.ErrorLogger.Handle())

	users := api.Group("/users")

	// Public endpoints: registration and login mint the session cookie
	users.Post("/create", userHandler.Create)
	users.Post("/login", userHandler.Login)

	// Protected endpoints: every request passes the auth gate
	protected := users.Group("")
	protected.Use(middlewareManager.Auth.Authenticate())
	protected.Get("/get", userHandler.List)
	protected.Get("/get/:id", userHandler.Get)
	protected.Patch("/update/:id", userHandler.Update)
	protected.Delete("/delete/:id", userHandler.Delete)

	// Role management is additionally role-gated
	protected.Put("/roles/:id", middlewareManager.Auth.RequireRole("admin"), adminHandler.SetRoles)

	// 404 handler
	app.Use(notFoundHandler)
}

// healthCheck returns the health status of the service
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Router /healthz [get]
func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "user-api",
	})
}

// readinessCheck checks if the service is ready to accept traffic
// @Summary Readiness check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Ready"
// @Failure 503 {object} map[string]interface{} "Not ready"
// @Router /readyz [get]
func readinessCheck(middlewareManager *middleware.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// The cache is optional infrastructure, but when it is
		// configured, a dead Redis means degraded reads everywhere.
		if middlewareManager.RedisClient != nil {
			redisHealthCheck := middleware.RedisHealthCheck(middlewareManager.RedisClient, middlewareManager.Logger)
			if err := redisHealthCheck(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":    "not ready",
					"reason":    "redis unavailable",
					"timestamp": time.Now().UTC(),
				})
			}
		}

		return c.JSON(fiber.Map{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "user-api",
		})
	}
}

// versionHandler returns version information
// @Summary Version information
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Version info"
// @Router /version [get]
func versionHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "user-api",
		"version": getVersion(),
	})
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": fiber.Map{
			"code":     "NOT_FOUND",
			"message":  "The requested resource was not found",
			"path":     c.Path(),
			"trace_id": c.Get("X-Request-ID"),
		},
	})
}

// getVersion is set during build in release pipelines
func getVersion() string {
	return "dev"
}
