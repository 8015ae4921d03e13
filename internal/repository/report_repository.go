package repository

import (
	"context"

	"shop_backend/internal/models"

	"gorm.io/gorm"
)

// BestSellerLimit is how many products the best-seller report returns.
const BestSellerLimit = 20

type ReportRepository interface {
	BestSellers(ctx context.Context, limit int) ([]models.BestSeller, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// BestSellers ranks products by quantity sold in completed orders.
// Products that no longer exist are left out.
func (r *reportRepository) BestSellers(ctx context.Context, limit int) ([]models.BestSeller, error) {
	if limit <= 0 {
		limit = BestSellerLimit
	}

	var rows []models.BestSeller
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select(`products.id AS id,
			products.title AS title,
			products.thumbnail AS thumbnail,
			products.price AS price,
			products.discount AS discount,
			products.slug AS slug,
			products.is_free_shipping AS is_free_shipping,
			SUM(order_items.quantity) AS total_quantity,
			COUNT(DISTINCT order_items.order_id) AS total_orders`).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.status = ?", models.OrderCompleted).
		Group("products.id, products.title, products.thumbnail, products.price, products.discount, products.slug, products.is_free_shipping").
		Order("total_quantity DESC").
		Order("products.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.BestSeller{}
	}
	return rows, nil
}
