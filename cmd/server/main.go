package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"tracker/internal/api"
	"tracker/internal/config"
	"tracker/internal/db"
	"tracker/internal/export"
	"tracker/internal/game"
	"tracker/internal/live"
	"tracker/internal/logging"
	"tracker/internal/tracker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	godotenv.Load()

	logger := logging.Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("config load failed: %v", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Errorf("db connection failed: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Errorf("invalid redis url: %v", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	notifier := db.NewNotifier(redisClient)
	store := db.NewStore(pool, notifier)

	if err := store.Migrate(ctx); err != nil {
		logger.Errorf("migration failed: %v", err)
		os.Exit(1)
	}
	if err := store.SeedDefaults(ctx); err != nil {
		logger.Errorf("seeding defaults failed: %v", err)
		os.Exit(1)
	}

	session := live.NewSession(store)
	offsets := game.Offsets{
		game.Player1: cfg.HistoricalPointsPlayer1,
		game.Player2: cfg.HistoricalPointsPlayer2,
	}
	svc := tracker.New(store, session, offsets)

	uploader, err := export.NewUploader(ctx, cfg)
	if err != nil {
		logger.Errorf("backup uploader init failed: %v", err)
		os.Exit(1)
	}
	exporter := export.NewService(store, uploader)

	interval := 24 * time.Hour
	if cfg.BackupInterval != "" {
		interval, err = time.ParseDuration(cfg.BackupInterval)
		if err != nil {
			logger.Errorf("invalid BACKUP_INTERVAL: %v", err)
			os.Exit(1)
		}
	}
	sched, err := exporter.StartScheduler(ctx, interval)
	if err != nil {
		logger.Errorf("backup scheduler failed: %v", err)
		os.Exit(1)
	}
	if sched != nil {
		defer sched.Shutdown()
	}

	app := fiber.New(fiber.Config{AppName: "tracker"})
	app.Use(cors.New())
	api.SetupRoutes(app, api.NewHandler(svc, exporter, store, notifier))

	go func() {
		logger.Infof("listening on %s", cfg.ListenAddr)
		if err := app.Listen(cfg.ListenAddr); err != nil {
			logger.Errorf("server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		logger.Errorf("shutdown failed: %v", err)
	}
}
