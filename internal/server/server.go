// Package server assembles the fiber application.
package server

import (
	"time"

	v1 "task-manager/internal/api/v1"
	"task-manager/internal/api/v1/handlers"
	"task-manager/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Options struct {
	CORSOrigins     string
	RateLimitMax    int
	RateLimitWindow time.Duration
	// BodyLimit must leave room for a multipart avatar upload.
	BodyLimit int
}

// New builds the app with the global middleware chain and all routes.
// A zero RateLimitMax disables the limiter.
func New(opts Options, deps handlers.Deps) *fiber.App {
	if opts.CORSOrigins == "" {
		opts.CORSOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:      "task-manager",
		ErrorHandler: handlers.FiberErrorHandler,
		BodyLimit:    opts.BodyLimit,
	})

	// Middleware
	app.Use(middleware.ErrorHandler())
	app.Use(middleware.Metrics())
	app.Use(cors.New(cors.Config{
		AllowOrigins: opts.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if opts.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimitMax,
			Expiration: opts.RateLimitWindow,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"message": "Too many requests",
					"success": false,
					"status":  fiber.StatusTooManyRequests,
				})
			},
		}))
	}

	h := handlers.New(deps)
	v1.RegisterRoutes(app, h, middleware.Authenticate(deps.Auth))
	return app
}
