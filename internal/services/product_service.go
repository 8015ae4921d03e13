package services

import (
	"context"
	"errors"

	"shop_backend/internal/models"
	"shop_backend/internal/repository"
)

type ProductService interface {
	BestSellers(ctx context.Context) ([]models.BestSeller, error)
}

type productService struct {
	reports repository.ReportRepository
	limit   int
}

func NewProductService(reports repository.ReportRepository) (ProductService, error) {
	if reports == nil {
		return nil, errors.New("product service: report repository is required")
	}
	return &productService{reports: reports, limit: repository.BestSellerLimit}, nil
}

// BestSellers ranks products by units sold in completed orders.
func (s *productService) BestSellers(ctx context.Context) ([]models.BestSeller, error) {
	return s.reports.BestSellers(ctx, s.limit)
}
