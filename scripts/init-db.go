package main

import (
	"fmt"
	"log"
	"os"

	"shop_backend/internal/config"
	"shop_backend/internal/database"
	"shop_backend/internal/logging"
	"shop_backend/internal/migrations"
	"shop_backend/internal/services"

	"go.uber.org/zap"
)

func main() {
	fmt.Println("Initializing database...")

	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize database; migrations run as part of it
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	fmt.Println("Seeding demo products...")
	created, err := migrations.SeedDemoProducts(db, logger)
	if err != nil {
		logger.Fatal("failed to seed products", zap.Error(err))
	}
	fmt.Printf("Created %d products\n", created)

	// Print a hash for ADMIN_KEY_HASH when an admin key is supplied
	if key := os.Getenv("ADMIN_KEY"); key != "" {
		hash, err := services.HashAdminKey(key)
		if err != nil {
			logger.Fatal("failed to hash admin key", zap.Error(err))
		}
		fmt.Println("ADMIN_KEY_HASH=" + hash)
	}

	fmt.Println("Database initialization completed successfully!")
}
