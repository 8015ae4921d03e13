package models

import (
	"time"
)

type Order struct {
	ID             uint        `json:"id" gorm:"primaryKey"`
	OrderNumber    string      `json:"order_number" gorm:"uniqueIndex;not null"`
	DeliveryCharge float64     `json:"delivery_charge" gorm:"not null;default:0"`
	Subtotal       float64     `json:"subtotal" gorm:"not null"`
	TotalPrice     float64     `json:"total_price" gorm:"not null"`
	Status         OrderStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	AddressID      *uint       `json:"address_id"`
	Address        *Address    `json:"address,omitempty" gorm:"foreignKey:AddressID"`
	OrderItems     []OrderItem `json:"order_items" gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderReturned   OrderStatus = "returned"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderPending,
	OrderProcessing,
	OrderCompleted,
	OrderCancelled,
	OrderReturned,
}

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}
