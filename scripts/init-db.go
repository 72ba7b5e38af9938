package main

import (
	"context"
	"flag"

	"pharmacy_backend/internal/config"
	"pharmacy_backend/internal/database"
	"pharmacy_backend/internal/migrations"
	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/repository"
	"pharmacy_backend/internal/services"

	"go.uber.org/zap"
)

// init-db migrates the schema and loads the default branch, admin and
// catalog. Pass -reset to drop every table first.
func main() {
	reset := flag.Bool("reset", false, "drop all tables before migrating")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg := config.Load()

	if *reset {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		logger.Info("Dropping existing tables...")
		if err := db.Migrator().DropTable(
			&models.Prescription{},
			&models.Notification{},
			&models.OrderItem{},
			&models.Order{},
			&models.Address{},
			&models.User{},
			&models.Product{},
			&models.Branch{},
			&models.DeliveryCharge{},
		); err != nil {
			logger.Fatal("Failed to drop tables", zap.Error(err))
		}
	}

	db, err := database.Initialize(cfg.DatabaseURL, database.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	store := repository.NewStore(db)
	err = migrations.Seed(context.Background(), store, services.NewUserService(store.Users()), migrations.SeedOptions{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		AdminMobile:   cfg.AdminMobile,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create default data", zap.Error(err))
	}

	logger.Info("Database initialization completed", zap.String("admin", cfg.AdminEmail))
}
