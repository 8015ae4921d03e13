package repository

import (
	"context"
	"fmt"
	"strings"

	"shop_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderListFilter selects and pages orders for the listing endpoint.
type OrderListFilter struct {
	Search string
	Status models.OrderStatus
	Offset int
	Limit  int
	// SortBy is an orders column name; callers validate it.
	SortBy string
	Desc   bool
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	GetDetailed(ctx context.Context, id uint) (*models.Order, error)
	AttachAddress(ctx context.Context, orderID, addressID uint) error
	UpdateStatus(ctx context.Context, id uint, from, to models.OrderStatus) (bool, error)
	Delete(ctx context.Context, id uint) (int64, error)
	List(ctx context.Context, filter OrderListFilter) ([]models.Order, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order header only. The insert runs in its own savepoint
// when called inside a transaction, so a duplicate order number can be retried
// without aborting the surrounding transaction.
func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(order).Error
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetDetailed loads the order with its address, items and item products.
func (r *orderRepository) GetDetailed(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.detailed(r.db.WithContext(ctx)).First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) AttachAddress(ctx context.Context, orderID, addressID uint) error {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("address_id", addressID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateStatus moves the order from one status to another and reports whether
// a row was changed. It returns false when the order is no longer in from.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, from, to models.OrderStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepository) Delete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Order{}, id)
	return result.RowsAffected, result.Error
}

// List returns one page of denormalized orders and the number of orders
// matching the filter. Filtering and sorting run over orders joined with
// their address; items and products are matched through a sub-query so an
// order without items still shows up.
func (r *orderRepository) List(ctx context.Context, filter OrderListFilter) ([]models.Order, int64, error) {
	db := r.db.WithContext(ctx)

	query := db.Model(&models.Order{}).
		Joins("LEFT JOIN addresses ON addresses.id = orders.address_id")

	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		query = query.Where(`(LOWER(orders.order_number) LIKE ? ESCAPE '!'
			OR LOWER(addresses.name) LIKE ? ESCAPE '!'
			OR LOWER(addresses.phone) LIKE ? ESCAPE '!'
			OR LOWER(addresses.address) LIKE ? ESCAPE '!'
			OR EXISTS (
				SELECT 1 FROM order_items
				JOIN products ON products.id = order_items.product_id
				WHERE order_items.order_id = orders.id
				AND (LOWER(products.title) LIKE ? ESCAPE '!' OR LOWER(products.code) LIKE ? ESCAPE '!')
			))`, like, like, like, like, like, like)
	}
	if filter.Status != "" {
		query = query.Where("orders.status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	if total == 0 {
		return []models.Order{}, 0, nil
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	page := query.Session(&gorm.Session{}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "orders", Name: sortBy}, Desc: filter.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "orders", Name: "id"}, Desc: filter.Desc}).
		Offset(filter.Offset)
	if filter.Limit > 0 {
		page = page.Limit(filter.Limit)
	}

	var ids []uint
	err := page.Pluck("orders.id", &ids).Error
	if err != nil {
		return nil, 0, fmt.Errorf("select order page: %w", err)
	}
	if len(ids) == 0 {
		return []models.Order{}, total, nil
	}

	var orders []models.Order
	if err := r.detailed(db).Where("id IN ?", ids).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("load order page: %w", err)
	}

	byID := make(map[uint]models.Order, len(orders))
	for _, order := range orders {
		byID[order.ID] = order
	}
	ordered := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		if order, ok := byID[id]; ok {
			ordered = append(ordered, order)
		}
	}
	return ordered, total, nil
}

func (r *orderRepository) detailed(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Address").
		Preload("OrderItems", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("order_items.id ASC")
		}).
		Preload("OrderItems.Product")
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return replacer.Replace(term)
}
