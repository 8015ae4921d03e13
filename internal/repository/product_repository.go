package repository

import (
	"context"

	"shop_backend/internal/models"

	"gorm.io/gorm"
)

// ProductRepository is the read side of the catalogue used by order creation.
// Create exists for seeding.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetByIDs returns the products that exist among ids, keyed by id.
// Missing ids are simply absent from the map.
func (r *productRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	found := make(map[uint]models.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		found[p.ID] = p
	}
	return found, nil
}
