package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups the stores that make up the order aggregate.
// Inside UnitOfWork.Do every member shares one transaction.
type Repositories struct {
	Orders     OrderRepository
	OrderItems OrderItemRepository
	Addresses  AddressRepository
	Products   ProductRepository
}

// NewRepositories builds the repository set on top of db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Orders:     NewOrderRepository(db),
		OrderItems: NewOrderItemRepository(db),
		Addresses:  NewAddressRepository(db),
		Products:   NewProductRepository(db),
	}
}

// UnitOfWork runs a function with repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repositories) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(repos Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
