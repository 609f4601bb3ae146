package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/romanzzaa/cortex-alerts/internal/config"
	"github.com/romanzzaa/cortex-alerts/internal/infrastructure/crypto"
	"github.com/romanzzaa/cortex-alerts/internal/infrastructure/database"
	"github.com/romanzzaa/cortex-alerts/internal/infrastructure/email"
	"github.com/romanzzaa/cortex-alerts/internal/infrastructure/finnhub"
	"github.com/romanzzaa/cortex-alerts/internal/infrastructure/rediscache"
	"github.com/romanzzaa/cortex-alerts/internal/usecase"
	"github.com/romanzzaa/cortex-alerts/internal/worker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	setupLogger(cfg.LogLevel)
	slog.Info("starting cortex worker", "env", cfg.Env)

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	slog.Info("connected to postgres")

	cache, err := rediscache.FromURL(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer cache.Close()
	slog.Info("connected to redis")

	var encryptor *crypto.Encryptor
	if cfg.Crypto.EncryptionKey != "" {
		encryptor, err = crypto.NewEncryptor(cfg.Crypto.EncryptionKey)
		if err != nil {
			log.Fatalf("Failed to initialize encryptor: %v", err)
		}
	} else {
		slog.Warn("encryption key not set, phone numbers will not be readable")
	}

	alertRepo := database.NewAlertRepository(db, cfg.Alerts.MaxAlertsPerUser)
	sectorRepo := database.NewSectorRepository(db)
	notificationRepo := database.NewNotificationRepository(db)
	userRepo := database.NewUserRepository(db, encryptor)

	client := finnhub.NewClient(cfg.Finnhub.APIKey, cfg.Finnhub.Timeout)
	mailer := email.NewSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)

	engine := usecase.NewAlertEngine(alertRepo, sectorRepo, notificationRepo, userRepo, cache, client, mailer)

	symbols := worker.NewSymbolSource(alertRepo, sectorRepo)
	streamer := finnhub.NewStreamer(finnhub.StreamURL(cfg.Finnhub.APIKey), cache, symbols.Subscription)

	clock, _ := config.ParseClock(cfg.Alerts.DailyRefreshAt)
	refresher := worker.NewDailyRefresher(client, cache, symbols.Watched, clock[0], clock[1])

	manager := worker.NewManager(streamer, refresher, engine, cfg.Alerts.CheckInterval)
	manager.Run(ctx)

	slog.Info("worker shut down")
}

func setupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
