package models

import (
	"time"

	"gorm.io/datatypes"
)

type OrderItem struct {
	ID            uint                           `json:"id" gorm:"primaryKey"`
	OrderID       uint                           `json:"order_id" gorm:"not null;index"`
	ProductID     uint                           `json:"product_id" gorm:"not null;index"`
	Product       *Product                       `json:"product" gorm:"foreignKey:ProductID"`
	Quantity      int                            `json:"quantity" gorm:"not null"`
	Attributes    datatypes.JSONSlice[Attribute] `json:"attributes"`
	Price         float64                        `json:"price" gorm:"not null"`
	DiscountPrice *float64                       `json:"discount_price,omitempty"`
	SellingPrice  float64                        `json:"selling_price" gorm:"not null"`
	Subtotal      float64                        `json:"subtotal" gorm:"not null"`
	CreatedAt     time.Time                      `json:"created_at"`
	UpdatedAt     time.Time                      `json:"updated_at"`
}

// Attribute is a selected product option such as size or colour.
type Attribute struct {
	Title string `json:"title"`
	Value string `json:"value"`
}
