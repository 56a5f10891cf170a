package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/storage"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/storage/redis/v3"
)

// PluginAlias is the alias the cache plugin is registered under.
const PluginAlias = "cache"

// PluginConfig configures the cache plugin.
type PluginConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// PluginModule provides the task cache as a mono plugin module. Plugins start
// before and stop after regular modules.
type PluginModule struct {
	config    PluginConfig
	logger    *slog.Logger
	container types.ServiceContainer
	storage   storage.Storage
	service   CacheService
}

// Compile-time interface checks.
var (
	_ mono.PluginModule          = (*PluginModule)(nil)
	_ mono.HealthCheckableModule = (*PluginModule)(nil)
)

// NewPluginModule creates a cache plugin for the given Redis server.
func NewPluginModule(config PluginConfig, logger *slog.Logger) *PluginModule {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Prefix == "" {
		config.Prefix = "task:"
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	return &PluginModule{
		config: config,
		logger: logger.With("module", "cache"),
	}
}

// Name returns the module name.
func (m *PluginModule) Name() string {
	return "cache"
}

// Start connects to Redis.
func (m *PluginModule) Start(_ context.Context) error {
	// redis.New panics when the server is unreachable.
	conn, err := net.DialTimeout("tcp", m.config.Addr, 2*time.Second)
	if err != nil {
		return fmt.Errorf("redis not reachable at %s: %w", m.config.Addr, err)
	}
	conn.Close()

	host, port := parseRedisAddr(m.config.Addr)
	m.storage = redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: m.config.Password,
		Database: m.config.DB,
		PoolSize: 50,
	})
	m.service = NewCacheService(m.storage, m.config.Prefix, m.config.TTL, m.logger)

	m.logger.Info("plugin started", "addr", m.config.Addr, "prefix", m.config.Prefix, "ttl", m.config.TTL)
	return nil
}

// Stop closes the Redis connection.
func (m *PluginModule) Stop(_ context.Context) error {
	if m.service != nil {
		if err := m.service.Close(); err != nil {
			m.logger.Error("failed to close connection", "error", err)
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	m.logger.Info("plugin stopped")
	return nil
}

// SetContainer sets the service container for this plugin.
func (m *PluginModule) SetContainer(container types.ServiceContainer) {
	m.container = container
}

// Container returns the service container for this plugin.
func (m *PluginModule) Container() types.ServiceContainer {
	return m.container
}

// Port returns the CacheService used by consumers. It is nil before Start.
func (m *PluginModule) Port() CacheService {
	return m.service
}

// Health returns the current health status.
func (m *PluginModule) Health(ctx context.Context) mono.HealthStatus {
	if m.storage == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "storage not initialized",
		}
	}

	if _, err := m.storage.GetWithContext(ctx, m.config.Prefix+"__health_check__"); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("health check failed: %v", err),
		}
	}

	stats := m.service.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"redis_addr": m.config.Addr,
			"prefix":     m.config.Prefix,
			"ttl":        m.config.TTL.String(),
			"hits":       stats.Hits,
			"misses":     stats.Misses,
		},
	}
}

// parseRedisAddr splits "host:port", falling back to 127.0.0.1:6379 for
// missing parts.
func parseRedisAddr(addr string) (string, int) {
	const defaultHost = "127.0.0.1"
	const defaultPort = 6379

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	if host == "" {
		host = defaultHost
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = defaultPort
	}
	return host, port
}
