package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/romanzzaa/cortex-alerts/internal/config"
	"github.com/romanzzaa/cortex-alerts/internal/domain"
	"github.com/romanzzaa/cortex-alerts/internal/infrastructure/crypto"
	"github.com/romanzzaa/cortex-alerts/internal/infrastructure/database"
)

// Seeds a demo user with a couple of alerts and a sector strategy so the
// worker has something to evaluate on a fresh database.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if cfg.Env != "local" {
		log.Fatal("Seeder allowed only in local environment")
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	ctx := context.Background()

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	var encryptor *crypto.Encryptor
	if cfg.Crypto.EncryptionKey != "" {
		if encryptor, err = crypto.NewEncryptor(cfg.Crypto.EncryptionKey); err != nil {
			log.Fatalf("Encryptor init failed: %v", err)
		}
	}

	userRepo := database.NewUserRepository(db, encryptor)
	alertRepo := database.NewAlertRepository(db, cfg.Alerts.MaxAlertsPerUser)
	sectorRepo := database.NewSectorRepository(db)

	user, err := userRepo.GetByEmail(ctx, "demo@cortex.local")
	if err != nil {
		log.Fatalf("User lookup failed: %v", err)
	}
	if user != nil {
		log.Printf("[Seeder] User already exists (ID: %d). Nothing to do.", user.ID)
		return
	}

	user = &domain.User{
		Email:              "demo@cortex.local",
		Username:           "demo",
		IsActive:           true,
		EmailNotifications: true,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	log.Printf("[Seeder] User created, ID: %d", user.ID)

	alerts := []*domain.Alert{
		{
			UserID:      user.ID,
			Symbol:      "AAPL",
			StockName:   "Apple Inc.",
			Type:        domain.AlertTypePriceAbove,
			Threshold:   decimal.NewFromInt(250),
			NotifyEmail: true,
		},
		{
			UserID:      user.ID,
			Symbol:      "SPY",
			Type:        domain.AlertTypePercentChange,
			Threshold:   decimal.NewFromFloat(1.5),
			IsRepeating: true,
			NotifyEmail: false,
		},
	}
	for _, alert := range alerts {
		if err := alertRepo.CreateAlert(ctx, alert); err != nil {
			log.Fatalf("Failed to create alert: %v", err)
		}
		log.Printf("[Seeder] Alert created: %s %s %s", alert.Symbol, alert.Type, alert.Threshold)
	}

	sector := &domain.Sector{UserID: user.ID, Name: "Big Tech", Color: "#6366f1", Icon: "cpu"}
	if err := sectorRepo.CreateSector(ctx, sector); err != nil {
		log.Fatalf("Failed to create sector: %v", err)
	}
	for _, entry := range []struct{ symbol, name string }{
		{"AAPL", "Apple Inc."},
		{"MSFT", "Microsoft Corporation"},
		{"GOOGL", "Alphabet Inc."},
		{"AMZN", "Amazon.com Inc."},
		{"META", "Meta Platforms Inc."},
	} {
		stock := &domain.SectorStock{SectorID: sector.ID, Symbol: entry.symbol, StockName: entry.name}
		if err := sectorRepo.AddStock(ctx, stock); err != nil {
			log.Fatalf("Failed to add sector stock: %v", err)
		}
	}
	log.Printf("[Seeder] Sector created: %s (ID: %d)", sector.Name, sector.ID)

	strategy := &domain.SectorStrategy{
		UserID:           user.ID,
		SectorID:         sector.ID,
		IsActive:         true,
		PercentMajority:  decimal.NewFromInt(70),
		TrendThreshold:   decimal.NewFromFloat(1.5),
		LaggardThreshold: decimal.NewFromFloat(-1.0),
	}
	if err := sectorRepo.CreateStrategy(ctx, strategy); err != nil {
		log.Fatalf("Failed to create strategy: %v", err)
	}
	log.Printf("[Seeder] Strategy created for sector %d", sector.ID)
}
