package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/Aftab-Fury/Task-Manager/config"
	"github.com/Aftab-Fury/Task-Manager/modules/api"
	"github.com/Aftab-Fury/Task-Manager/modules/auth"
	"github.com/Aftab-Fury/Task-Manager/modules/cache"
	"github.com/Aftab-Fury/Task-Manager/modules/ratelimit"
	"github.com/Aftab-Fury/Task-Manager/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "server configuration file")
	flag.Parse()

	cfg := config.MustLoad(configPath)
	log := mustMakeLogger(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting task manager", "address", cfg.HTTP.Address, "db_driver", cfg.DB.Driver, "redis", cfg.Redis.Enabled())

	monoLevel := mono.LogLevelInfo
	if cfg.LogLevel == "ERROR" {
		monoLevel = mono.LogLevelError
	}
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(monoLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	rateLimit := api.RateLimitConfig{
		Max:    cfg.HTTP.RateLimit,
		Window: cfg.HTTP.RateWindow,
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		if cfg.HTTP.RateLimit > 0 {
			rateLimit.Limiter = ratelimit.NewSlidingWindowLimiter(redisClient, ratelimit.Config{
				RequestsPerWindow: cfg.HTTP.RateLimit,
				WindowSize:        cfg.HTTP.RateWindow,
			}, "ratelimit:")
		}

		// Plugins start before and stop after regular modules.
		cachePlugin := cache.NewPluginModule(cache.PluginConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.CacheTTL,
		}, log)
		if err := app.RegisterPlugin(cachePlugin, cache.PluginAlias); err != nil {
			log.Error("failed to register cache plugin", "error", err)
			os.Exit(1)
		}
	}

	// Independent modules first, then dependent modules.
	app.Register(auth.NewModule(auth.ModuleConfig{
		DBDriver: cfg.DB.Driver,
		DBDSN:    cfg.DB.UsersDSN,
		DBDebug:  cfg.DB.Debug,
		JWT: auth.JWTConfig{
			SecretKey:            cfg.JWT.Secret,
			AccessTokenDuration:  cfg.JWT.AccessTTL,
			RefreshTokenDuration: cfg.JWT.RefreshTTL,
			Issuer:               cfg.JWT.Issuer,
		},
	}, log))
	app.Register(task.NewModule(task.ModuleConfig{
		DBDriver: cfg.DB.Driver,
		DBDSN:    cfg.DB.TasksDSN,
		DBDebug:  cfg.DB.Debug,
	}, log))
	app.Register(api.NewModule(api.ModuleConfig{
		Address: cfg.HTTP.Address,
		App: api.AppConfig{
			CORSOrigins: cfg.HTTP.CORSOrigins,
			BodyLimit:   cfg.HTTP.BodyLimit,
			RateLimit:   rateLimit,
			AccessLog:   true,
		},
	}, log))

	if err := app.Start(context.Background()); err != nil {
		log.Error("failed to start application", "error", err)
		os.Exit(1)
	}
	log.Info("application started", "address", cfg.HTTP.Address)

	operations := map[string]gfshutdown.Operation{
		"mono-app": func(ctx context.Context) error {
			log.Info("graceful shutdown initiated")
			return app.Stop(ctx)
		},
	}
	if redisClient != nil {
		operations["redis"] = func(_ context.Context) error {
			return redisClient.Close()
		}
	}

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, operations)
	exitCode := <-wait
	log.Info("application exited", "code", exitCode)
	os.Exit(exitCode)
}

func mustMakeLogger(logLevel string) *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
