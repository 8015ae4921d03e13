// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"shop_backend/internal/database"
	"shop_backend/internal/migrations"
	"shop_backend/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

// NewDB returns a migrated SQLite database in a temp directory.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "shop.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig("silent"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migrations.RunMigrations(db, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateProduct inserts a published product.
func CreateProduct(t testing.TB, db *gorm.DB, title, code string, price float64) models.Product {
	t.Helper()
	product := models.Product{
		Title:       title,
		Slug:        strings.ToLower(code),
		Code:        code,
		Thumbnail:   "/uploads/" + code + ".jpg",
		Price:       price,
		IsPublished: true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}
