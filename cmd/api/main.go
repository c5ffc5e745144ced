package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tunewave-backend/config"
	"tunewave-backend/internal/cache"
	"tunewave-backend/internal/database"
	"tunewave-backend/internal/handlers"
	"tunewave-backend/internal/queue"
	"tunewave-backend/internal/routes"
	"tunewave-backend/internal/services"
)

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.App.Env == "development" {
		zcfg = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}

func main() {
	// 1. Load Configuration
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	log, err := newLogger(*cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Moderation store
	var repo database.ModerationRepository
	switch cfg.App.Store {
	case "memory":
		log.Warn("using in-memory moderation store; data is lost on restart")
		repo = database.NewMemoryRepository()
	default:
		db, err := database.ConnectDB(ctx, cfg.DB, log)
		if err != nil {
			return err
		}
		defer database.CloseDB(db)
		repo = database.NewGormRepository(db)
	}

	// 3. Redis (events and cache); optional outside postgres deployments
	var rdb *redis.Client
	if cfg.App.Store != "memory" || cfg.Cache.Backend == "redis" {
		client, err := database.ConnectRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-process events and cache", zap.Error(err))
		} else {
			rdb = client
			defer rdb.Close()
		}
	}

	cacheOpts := cache.Options{
		Prefix:   cfg.Cache.KeyPrefix,
		TTL:      cfg.Cache.TTL,
		TTLs:     map[string]time.Duration{services.AccuracyCacheName: cfg.Cache.AccuracyTTL},
		Capacity: cfg.Cache.Capacity,
		LocalTTL: cfg.Cache.LocalTTL,
	}
	var store cache.Store
	var bus queue.Bus
	if rdb != nil {
		bus = queue.NewRedisBus(rdb, log)
		if cfg.Cache.Backend == "redis" {
			store = cache.NewRedisStore(rdb, cacheOpts)
		}
	} else {
		bus = queue.NewMemoryBus(256)
	}
	if store == nil {
		store = cache.NewMemStore(cacheOpts)
	}

	// 4. Export storage (S3/R2)
	opts := []services.Option{}
	if cfg.S3.Enabled() {
		exports, err := database.ConnectS3(ctx, cfg.S3, log)
		if err != nil {
			return err
		}
		opts = append(opts, services.WithExportStorage(exports))
	}

	// 5. Notifications
	var notifier services.Notifier = services.LogNotifier{Log: log}
	if cfg.Telegram.BotToken != "" {
		tg, err := services.NewTelegramNotifier(cfg.Telegram.BotToken, log)
		if err != nil {
			log.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	svc := services.NewModerationService(repo, store, bus, log, opts...)

	// 6. Fiber app
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ServerHeader: "Tunewave-Moderation",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())  // Request logging
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, HEAD, PUT, DELETE, PATCH",
	}))

	routes.SetupRoutes(app, routes.Handlers{
		Auth:       handlers.NewAuthHandler(repo, cfg, log),
		Moderation: handlers.NewModerationHandler(svc, log),
		Live:       handlers.NewLiveLogsHandler(svc, log),
	}, cfg.JWT.Secret)

	// 7. Moderation subscriber (in background)
	subDone := make(chan struct{})
	go func() {
		defer close(subDone)
		sub := services.NewModerationSubscriber(repo, notifier, log)
		if err := sub.Run(ctx, bus); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("moderation subscriber exited", zap.Error(err))
		}
	}()

	// 8. Start server
	listenErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		listenErr <- app.Listen(":" + cfg.App.Port)
	}()

	select {
	case err := <-listenErr:
		stop()
		<-subDone
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	<-subDone
	return nil
}
