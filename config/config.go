// Package config loads the task manager configuration from a YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"INFO"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	HTTP            HTTP          `yaml:"http"`
	DB              DB            `yaml:"db"`
	JWT             JWT           `yaml:"jwt"`
	Redis           Redis         `yaml:"redis"`
}

type HTTP struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":3000"`
	RateLimit   int           `yaml:"rate_limit" env:"HTTP_RATE_LIMIT" env-default:"100"`
	RateWindow  time.Duration `yaml:"rate_window" env:"HTTP_RATE_WINDOW" env-default:"1m"`
	CORSOrigins string        `yaml:"cors_origins" env:"HTTP_CORS_ORIGINS" env-default:"*"`
	BodyLimit   int           `yaml:"body_limit" env:"HTTP_BODY_LIMIT" env-default:"1048576"`
}

type DB struct {
	// Driver is either "sqlite" or "postgres".
	Driver   string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	TasksDSN string `yaml:"tasks_dsn" env:"DB_TASKS_DSN" env-default:"tasks.db"`
	UsersDSN string `yaml:"users_dsn" env:"DB_USERS_DSN" env-default:"users.db"`
	Debug    bool   `yaml:"debug" env:"DB_DEBUG" env-default:"false"`
}

type JWT struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET_KEY" env-default:"change-me-in-production"`
	Issuer     string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"task-manager"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL" env-default:"15m"`
	RefreshTTL time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL" env-default:"168h"`
}

// Redis is optional. With an empty Addr the cache is disabled and rate
// limiting falls back to in-process counters.
type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"5m"`
}

// Enabled reports whether a Redis server is configured.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

// Load reads configPath when it exists and the environment otherwise.
// Environment variables override file values.
func Load(configPath string) (Config, error) {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("cannot read env: %w", err)
		}
		return cfg, cfg.validate()
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		var pe *os.PathError
		if !errors.As(err, &pe) {
			return Config{}, fmt.Errorf("cannot read config %q: %w", configPath, err)
		}
		cfg = Config{}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("cannot read env: %w", err)
		}
	}

	return cfg, cfg.validate()
}

// MustLoad is Load that exits the process on failure.
func MustLoad(configPath string) Config {
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("config: %s", err)
	}
	return cfg
}

func (c Config) validate() error {
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt secret must not be empty")
	}
	if c.HTTP.RateLimit < 0 {
		return errors.New("http rate limit must not be negative")
	}
	return nil
}
