package models

import "time"

type Product struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Title          string    `json:"title" gorm:"not null"`
	Slug           string    `json:"slug" gorm:"not null;index"`
	Code           string    `json:"code"`
	Thumbnail      string    `json:"thumbnail"`
	Price          float64   `json:"price" gorm:"not null"`
	Discount       *float64  `json:"discount,omitempty"`
	IsFreeShipping bool      `json:"is_free_shipping" gorm:"default:false"`
	IsPublished    bool      `json:"is_published" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BestSeller is one row of the best-selling products report.
type BestSeller struct {
	ID             uint     `json:"id"`
	Title          string   `json:"title"`
	Thumbnail      string   `json:"thumbnail"`
	Price          float64  `json:"price"`
	Discount       *float64 `json:"discount"`
	Slug           string   `json:"slug"`
	IsFreeShipping bool     `json:"is_free_shipping"`
	TotalQuantity  int64    `json:"totalQuantity"`
	TotalOrders    int64    `json:"totalOrders"`
}
