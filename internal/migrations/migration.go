package migrations

import (
	"shop_backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunMigrations creates or updates the order aggregate and product tables.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("running database migrations")

	err := db.AutoMigrate(
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Address{},
	)
	if err != nil {
		return err
	}

	log.Info("database migrations completed")
	return nil
}

// SeedDemoProducts inserts a small catalogue when the products table is empty.
// It returns the number of rows created.
func SeedDemoProducts(db *gorm.DB, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var count int64
	if err := db.Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		log.Info("products already present, skipping demo data", zap.Int64("count", count))
		return 0, nil
	}

	discount := 50.0
	products := []models.Product{
		{Title: "Cotton Panjabi", Slug: "cotton-panjabi", Code: "PJ-001", Thumbnail: "/uploads/panjabi.jpg", Price: 1450, Discount: &discount, IsPublished: true},
		{Title: "Leather Wallet", Slug: "leather-wallet", Code: "WL-014", Thumbnail: "/uploads/wallet.jpg", Price: 650, IsPublished: true, IsFreeShipping: true},
		{Title: "Steel Water Bottle", Slug: "steel-water-bottle", Code: "BT-203", Thumbnail: "/uploads/bottle.jpg", Price: 480, IsPublished: true},
		{Title: "Silk Scarf", Slug: "silk-scarf", Code: "SC-032", Thumbnail: "/uploads/scarf.jpg", Price: 890, IsPublished: false},
	}
	if err := db.Create(&products).Error; err != nil {
		return 0, err
	}

	log.Info("demo products created", zap.Int("count", len(products)))
	return len(products), nil
}
