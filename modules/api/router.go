package api

import (
	"log/slog"
	"strings"

	"github.com/Aftab-Fury/Task-Manager/modules/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// AppConfig configures the HTTP application.
type AppConfig struct {
	CORSOrigins string
	BodyLimit   int
	RateLimit   RateLimitConfig
	// AccessLog enables the request log middleware.
	AccessLog bool
}

// NewApp builds the Fiber application with all routes mounted.
func NewApp(cfg AppConfig, authPort auth.AuthPort, handlers *Handlers, health fiber.Handler, log *slog.Logger) *fiber.App {
	if log == nil {
		log = slog.Default()
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
		}))
	}
	origins := cfg.CORSOrigins
	if strings.TrimSpace(origins) == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{AllowOrigins: origins}))

	app.Get("/health", health)

	throttle := RateLimitMiddleware(cfg.RateLimit, log)

	v1 := app.Group("/api/v1")

	authRoutes := v1.Group("/auth", throttle)
	authRoutes.Post("/register", handlers.Register)
	authRoutes.Post("/login", handlers.Login)
	authRoutes.Post("/refresh", handlers.Refresh)

	protected := v1.Group("", AuthMiddleware(authPort), throttle)
	protected.Get("/profile", handlers.Profile)

	protected.Get("/tasks", handlers.ListTasks)
	protected.Post("/tasks", handlers.CreateTask)
	protected.Get("/tasks/:id", handlers.GetTask)
	protected.Put("/tasks/:id", handlers.ReplaceTask)
	protected.Patch("/tasks/:id", handlers.PatchTask)
	protected.Delete("/tasks/:id", handlers.DeleteTask)
	protected.Post("/tasks/:id/assign", handlers.AssignTask)
	protected.Get("/tasks/:id/assignments", handlers.TaskAssignments)

	protected.Get("/users/:user/tasks", handlers.UserTasks)

	return app
}
