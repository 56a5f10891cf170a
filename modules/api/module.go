// Package api is the HTTP driving adapter. It authenticates requests,
// throttles them and translates between HTTP and the auth and task modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aftab-Fury/Task-Manager/modules/auth"
	"github.com/Aftab-Fury/Task-Manager/modules/task"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
)

// ModuleConfig configures the API module.
type ModuleConfig struct {
	Address string
	App     AppConfig
}

// APIModule is the HTTP API module.
type APIModule struct {
	config    ModuleConfig
	logger    *slog.Logger
	app       *fiber.App
	authPort  auth.AuthPort
	taskPort  task.TaskPort
	startedAt time.Time
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(config ModuleConfig, logger *slog.Logger) *APIModule {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Address == "" {
		config.Address = ":3000"
	}
	return &APIModule{
		config: config,
		logger: logger.With("module", "api"),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "task"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authPort = auth.NewAuthAdapter(container)
	case "task":
		m.taskPort = task.NewTaskAdapter(container)
	}
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authPort == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.taskPort == nil {
		return fmt.Errorf("task dependency not set")
	}

	handlers := NewHandlers(m.authPort, m.taskPort, m.logger)
	m.app = NewApp(m.config.App, m.authPort, handlers, m.healthHandler, m.logger)
	m.startedAt = time.Now()

	go func() {
		if err := m.app.Listen(m.config.Address); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "address", m.config.Address)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("shutting down HTTP server")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"address": m.config.Address,
		},
	}
}

func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"module": "api",
		"uptime": time.Since(m.startedAt).Round(time.Second).String(),
	})
}
