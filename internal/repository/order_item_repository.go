package repository

import (
	"context"

	"shop_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderItemRepository interface {
	CreateBatch(ctx context.Context, items []*models.OrderItem) (int64, error)
	DeleteByOrderID(ctx context.Context, orderID uint) (int64, error)
}

type orderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) OrderItemRepository {
	return &orderItemRepository{db: db}
}

// CreateBatch inserts all items in one statement and returns the number of rows written.
func (r *orderItemRepository) CreateBatch(ctx context.Context, items []*models.OrderItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Omit(clause.Associations).Create(&items)
	return result.RowsAffected, result.Error
}

func (r *orderItemRepository) DeleteByOrderID(ctx context.Context, orderID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderItem{})
	return result.RowsAffected, result.Error
}
