package repository

import (
	"context"

	"shop_backend/internal/models"

	"gorm.io/gorm"
)

type AddressRepository interface {
	Create(ctx context.Context, address *models.Address) error
	DeleteByOrderID(ctx context.Context, orderID uint) (int64, error)
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Create(address).Error
}

func (r *addressRepository) DeleteByOrderID(ctx context.Context, orderID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.Address{})
	return result.RowsAffected, result.Error
}
