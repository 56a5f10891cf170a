// Package task is the task-tracking module. It owns task storage and exposes
// lifecycle, assignment and query operations as request-reply services.
package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Aftab-Fury/Task-Manager/database"
	"github.com/Aftab-Fury/Task-Manager/modules/auth"
	"github.com/Aftab-Fury/Task-Manager/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/gorm"
)

// ModuleConfig configures the task module.
type ModuleConfig struct {
	DBDriver string
	DBDSN    string
	DBDebug  bool
}

// TaskModule provides task management services.
type TaskModule struct {
	config   ModuleConfig
	logger   *slog.Logger
	db       *gorm.DB
	userPort auth.UserPort
	plugin   *cache.PluginModule
	service  *Service
}

var (
	_ mono.Module                = (*TaskModule)(nil)
	_ mono.ServiceProviderModule = (*TaskModule)(nil)
	_ mono.DependentModule       = (*TaskModule)(nil)
	_ mono.UsePluginModule       = (*TaskModule)(nil)
	_ mono.HealthCheckableModule = (*TaskModule)(nil)
)

// NewModule creates a new TaskModule.
func NewModule(config ModuleConfig, logger *slog.Logger) *TaskModule {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskModule{
		config: config,
		logger: logger.With("module", "task"),
	}
}

func (m *TaskModule) Name() string {
	return "task"
}

func (m *TaskModule) Dependencies() []string {
	return []string{"auth"}
}

func (m *TaskModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "auth" {
		m.userPort = auth.NewAuthAdapter(container)
	}
}

// SetPlugin receives the cache plugin when one is registered.
func (m *TaskModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != cache.PluginAlias {
		return
	}
	if p, ok := plugin.(*cache.PluginModule); ok {
		m.plugin = p
		m.logger.Info("cache plugin attached", "alias", alias)
	}
}

func (m *TaskModule) Start(_ context.Context) error {
	if m.userPort == nil {
		return fmt.Errorf("auth dependency not set")
	}

	db, err := database.Open(m.config.DBDriver, m.config.DBDSN, m.config.DBDebug)
	if err != nil {
		return err
	}
	m.db = db

	repo := NewRepository(db)
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	opts := []ServiceOption{WithLogger(m.logger)}
	// Plugins start before modules, so the cache port is ready here.
	if m.plugin != nil && m.plugin.Port() != nil {
		opts = append(opts, WithCache(m.plugin.Port()))
	}
	m.service = NewService(repo, m.userPort, opts...)

	m.logger.Info("module started", "driver", m.config.DBDriver, "database", m.config.DBDSN, "cache", len(opts) > 1)
	return nil
}

func (m *TaskModule) Stop(_ context.Context) error {
	if err := database.Close(m.db); err != nil {
		m.logger.Error("failed to close database", "error", err)
	}
	m.logger.Info("module stopped")
	return nil
}

func (m *TaskModule) Health(_ context.Context) mono.HealthStatus {
	if err := database.Ping(m.db); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	details := map[string]any{"driver": m.config.DBDriver}
	if m.service != nil {
		stats := m.service.cache.Stats()
		details["cache_hits"] = stats.Hits
		details["cache_misses"] = stats.Misses
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}

func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateTask, json.Unmarshal, json.Marshal, m.handleCreate,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateTask, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetTask, json.Unmarshal, json.Marshal, m.handleGet,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetTask, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListTasks, json.Unmarshal, json.Marshal, m.handleList,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListTasks, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUpdateTask, json.Unmarshal, json.Marshal, m.handleUpdate,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUpdateTask, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDeleteTask, json.Unmarshal, json.Marshal, m.handleDelete,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDeleteTask, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceAssignTask, json.Unmarshal, json.Marshal, m.handleAssign,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceAssignTask, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceTaskAssignments, json.Unmarshal, json.Marshal, m.handleAssignments,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceTaskAssignments, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUserTasks, json.Unmarshal, json.Marshal, m.handleUserTasks,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUserTasks, err)
	}

	m.logger.Info("registered services",
		"services", []string{
			ServiceCreateTask, ServiceGetTask, ServiceListTasks, ServiceUpdateTask,
			ServiceDeleteTask, ServiceAssignTask, ServiceTaskAssignments, ServiceUserTasks,
		})
	return nil
}
