package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shop_backend/internal/models"
	"shop_backend/internal/pagination"
	"shop_backend/internal/repository"
	"shop_backend/pkg/fbconversion"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates the order changed while it was being updated.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderCreateFailed hides the failing step of the creation transaction.
	ErrOrderCreateFailed = errors.New("failed to create order")
	// ErrOrderDeleteFailed hides the failing step of the deletion transaction.
	ErrOrderDeleteFailed = errors.New("failed to delete order")
	// ErrInvalidOrderStatus is returned for a status outside the known set.
	ErrInvalidOrderStatus = fmt.Errorf("%w: unknown order status", ErrOrderInvalidInput)
)

const maxOrderNumberAttempts = 5

// orderSortFields maps accepted sort keys to orders columns.
var orderSortFields = map[string]string{
	"created_at":      "created_at",
	"createdAt":       "created_at",
	"updated_at":      "updated_at",
	"updatedAt":       "updated_at",
	"order_number":    "order_number",
	"orderNumber":     "order_number",
	"orderNo":         "order_number",
	"status":          "status",
	"total_price":     "total_price",
	"totalPrice":      "total_price",
	"subtotal":        "subtotal",
	"delivery_charge": "delivery_charge",
	"deliveryCharge":  "delivery_charge",
}

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter, opts pagination.Options) (*OrderPage, error)
	SetStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error)
	Approve(ctx context.Context, id uint) (*models.Order, error)
	Cancel(ctx context.Context, id uint) (*models.Order, error)
	Complete(ctx context.Context, id uint) (*models.Order, error)
	DeleteOrder(ctx context.Context, id uint) (*models.Order, error)
}

type CreateOrderInput struct {
	DeliveryCharge float64
	Subtotal       float64
	TotalPrice     float64
	Address        AddressInput
	Items          []CreateOrderItemInput
	Client         ClientInfo
}

type AddressInput struct {
	Name    string
	Phone   string
	Address string
}

type CreateOrderItemInput struct {
	ProductID     uint
	Quantity      int
	Attributes    []models.Attribute
	Price         float64
	DiscountPrice *float64
	SellingPrice  float64
	Subtotal      float64
}

type OrderFilter struct {
	Search string
	Status string
}

type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type OrderPage struct {
	Meta PageMeta
	Data []models.Order
}

// ConversionSettings controls purchase reporting.
type ConversionSettings struct {
	Rate     float64
	Currency string
	Timeout  time.Duration
}

// OrderServiceDeps collects the collaborators of the order service.
type OrderServiceDeps struct {
	DB           *gorm.DB
	Repositories *repository.Repositories
	UnitOfWork   repository.UnitOfWork
	OrderNumbers OrderNumberGenerator
	Tracker      ConversionTracker
	Conversion   ConversionSettings
	Pagination   pagination.Config
	Clock        func() time.Time
	// Async runs fire-and-forget work. Defaults to a new goroutine.
	Async  func(task func())
	Logger *zap.Logger
}

type orderService struct {
	repos      repository.Repositories
	unitOfWork repository.UnitOfWork
	numbers    OrderNumberGenerator
	tracker    ConversionTracker
	conversion ConversionSettings
	paging     pagination.Config
	clock      func() time.Time
	async      func(task func())
	logger     *zap.Logger
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
// Either DB or both Repositories and UnitOfWork must be provided.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	var repos repository.Repositories
	switch {
	case deps.Repositories != nil:
		repos = *deps.Repositories
	case deps.DB != nil:
		repos = repository.NewRepositories(deps.DB)
	default:
		return nil, errors.New("order service: repositories are required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		if deps.DB == nil {
			return nil, errors.New("order service: unit of work is required")
		}
		unit = repository.NewUnitOfWork(deps.DB)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	numbers := deps.OrderNumbers
	if numbers == nil {
		numbers = ClockOrderNumbers(clock)
	}

	async := deps.Async
	if async == nil {
		async = func(task func()) { go task() }
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	conversion := deps.Conversion
	if conversion.Currency == "" {
		conversion.Currency = "USD"
	}
	if conversion.Timeout <= 0 {
		conversion.Timeout = 10 * time.Second
	}

	paging := deps.Pagination
	paging.DefaultSort = "created_at"
	paging.SortFields = orderSortFields

	return &orderService{
		repos:      repos,
		unitOfWork: unit,
		numbers:    numbers,
		tracker:    deps.Tracker,
		conversion: conversion,
		paging:     paging,
		clock:      clock,
		async:      async,
		logger:     logger.Named("orders"),
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := validateCreateOrder(input); err != nil {
		return nil, err
	}

	order := &models.Order{
		DeliveryCharge: input.DeliveryCharge,
		Subtotal:       input.Subtotal,
		TotalPrice:     input.TotalPrice,
		Status:         models.OrderPending,
	}

	err := s.unitOfWork.Do(ctx, func(repos repository.Repositories) error {
		if err := s.checkProducts(ctx, repos.Products, input.Items); err != nil {
			return err
		}
		if err := s.insertOrder(ctx, repos.Orders, order); err != nil {
			return err
		}

		items := make([]*models.OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			attributes := item.Attributes
			if attributes == nil {
				attributes = []models.Attribute{}
			}
			items = append(items, &models.OrderItem{
				OrderID:       order.ID,
				ProductID:     item.ProductID,
				Quantity:      item.Quantity,
				Attributes:    attributes,
				Price:         item.Price,
				DiscountPrice: item.DiscountPrice,
				SellingPrice:  item.SellingPrice,
				Subtotal:      item.Subtotal,
			})
		}
		created, err := repos.OrderItems.CreateBatch(ctx, items)
		if err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		if created != int64(len(items)) {
			return fmt.Errorf("insert order items: created %d of %d", created, len(items))
		}

		address := &models.Address{
			OrderID: order.ID,
			Name:    strings.TrimSpace(input.Address.Name),
			Phone:   strings.TrimSpace(input.Address.Phone),
			Address: strings.TrimSpace(input.Address.Address),
		}
		if err := repos.Addresses.Create(ctx, address); err != nil {
			return fmt.Errorf("insert address: %w", err)
		}
		if address.ID == 0 {
			return errors.New("insert address: no id assigned")
		}

		if err := repos.Orders.AttachAddress(ctx, order.ID, address.ID); err != nil {
			return fmt.Errorf("attach address: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("order creation rolled back", zap.Error(err))
		return nil, ErrOrderCreateFailed
	}

	created, err := s.repos.Orders.GetDetailed(ctx, order.ID)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}

	s.logger.Info("order created",
		zap.Uint("order_id", created.ID),
		zap.String("order_number", created.OrderNumber),
		zap.Int("items", len(created.OrderItems)))

	s.trackPurchase(ctx, created, input.Client)
	return created, nil
}

// checkProducts logs item product ids that are missing from the catalogue.
// Items keep a weak reference, so unknown products do not block the order.
func (s *orderService) checkProducts(ctx context.Context, products repository.ProductRepository, items []CreateOrderItemInput) error {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	found, err := products.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("look up products: %w", err)
	}

	var missing []uint
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		s.logger.Warn("order references unknown products", zap.Uints("product_ids", missing))
	}
	return nil
}

// insertOrder stores the header under a fresh order number, drawing a new
// number when the previous one is already taken.
func (s *orderService) insertOrder(ctx context.Context, orders repository.OrderRepository, order *models.Order) error {
	for attempt := 1; ; attempt++ {
		number, err := s.numbers.Next(ctx)
		if err != nil {
			return fmt.Errorf("generate order number: %w", err)
		}
		order.ID = 0
		order.OrderNumber = number

		err = orders.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) || attempt >= maxOrderNumberAttempts {
			return fmt.Errorf("insert order: %w", err)
		}
		s.logger.Warn("order number already taken, retrying",
			zap.String("order_number", number),
			zap.Int("attempt", attempt))
	}
}

func (s *orderService) trackPurchase(ctx context.Context, order *models.Order, client ClientInfo) {
	if s.tracker == nil {
		return
	}

	contents := make([]PurchaseContent, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		contents = append(contents, PurchaseContent{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	event := PurchaseEvent{
		EventID:  order.OrderNumber,
		Time:     s.clock(),
		Value:    ConvertValue(order.TotalPrice, s.conversion.Rate),
		Currency: s.conversion.Currency,
		Contents: contents,
		Client:   client,
	}

	detached := context.WithoutCancel(ctx)
	s.async(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("conversion tracking panicked",
					zap.String("order_number", event.EventID),
					zap.Any("panic", r))
			}
		}()

		trackCtx, cancel := context.WithTimeout(detached, s.conversion.Timeout)
		defer cancel()

		if err := s.tracker.TrackPurchase(trackCtx, event); err != nil {
			if errors.Is(err, fbconversion.ErrNotConfigured) {
				s.logger.Debug("conversion tracking disabled", zap.String("order_number", event.EventID))
				return
			}
			s.logger.Warn("conversion tracking failed",
				zap.String("order_number", event.EventID),
				zap.Error(err))
		}
	})
}

func (s *orderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.repos.Orders.GetDetailed(ctx, id)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderFilter, opts pagination.Options) (*OrderPage, error) {
	params, err := pagination.Resolve(opts, s.paging)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOrderInvalidInput, err)
	}

	status := models.OrderStatus(strings.ToLower(strings.TrimSpace(filter.Status)))
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrderStatus, filter.Status)
	}

	orders, total, err := s.repos.Orders.List(ctx, repository.OrderListFilter{
		Search: filter.Search,
		Status: status,
		Offset: params.Skip,
		Limit:  params.Limit,
		SortBy: params.SortBy,
		Desc:   params.Desc(),
	})
	if err != nil {
		return nil, err
	}

	return &OrderPage{
		Meta: PageMeta{Page: params.Page, Limit: params.Limit, Total: total},
		Data: orders,
	}, nil
}

// SetStatus moves an order to status. Setting the current status again is a
// no-op that returns the order unchanged.
func (s *orderService) SetStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	status = models.OrderStatus(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrderStatus, status)
	}

	order, err := s.repos.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	if order.Status == status {
		return order, nil
	}
	if IsTerminal(order.Status) {
		return nil, fmt.Errorf("%w: order is %q and its status is final", ErrOrderInvalidState, order.Status)
	}
	if !CanTransition(order.Status, status) {
		return nil, fmt.Errorf("%w: order status %q cannot change to %q", ErrOrderInvalidState, order.Status, status)
	}

	updated, err := s.repos.Orders.UpdateStatus(ctx, id, order.Status, status)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, fmt.Errorf("%w: order %d is no longer %q", ErrOrderConflict, id, order.Status)
	}

	s.logger.Info("order status changed",
		zap.Uint("order_id", id),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)))

	order, err = s.repos.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) Approve(ctx context.Context, id uint) (*models.Order, error) {
	return s.SetStatus(ctx, id, models.OrderProcessing)
}

func (s *orderService) Cancel(ctx context.Context, id uint) (*models.Order, error) {
	return s.SetStatus(ctx, id, models.OrderCancelled)
}

func (s *orderService) Complete(ctx context.Context, id uint) (*models.Order, error) {
	return s.SetStatus(ctx, id, models.OrderCompleted)
}

// DeleteOrder removes the order together with its items and address.
func (s *orderService) DeleteOrder(ctx context.Context, id uint) (*models.Order, error) {
	var deleted *models.Order
	err := s.unitOfWork.Do(ctx, func(repos repository.Repositories) error {
		order, err := repos.Orders.GetByID(ctx, id)
		if err != nil {
			return s.mapRepositoryError(err)
		}

		items, err := repos.OrderItems.DeleteByOrderID(ctx, id)
		if err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		if _, err := repos.Addresses.DeleteByOrderID(ctx, id); err != nil {
			return fmt.Errorf("delete address: %w", err)
		}
		rows, err := repos.Orders.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		if rows == 0 {
			return errors.New("delete order: no rows removed")
		}

		s.logger.Info("order deleted", zap.Uint("order_id", id), zap.Int64("items", items))
		deleted = order
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		s.logger.Error("order deletion rolled back", zap.Uint("order_id", id), zap.Error(err))
		return nil, ErrOrderDeleteFailed
	}
	return deleted, nil
}

func (s *orderService) mapRepositoryError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	return err
}

func validateCreateOrder(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", ErrOrderInvalidInput)
	}
	if input.DeliveryCharge < 0 || input.Subtotal < 0 || input.TotalPrice < 0 {
		return fmt.Errorf("%w: order amounts must not be negative", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(input.Address.Name) == "" ||
		strings.TrimSpace(input.Address.Phone) == "" ||
		strings.TrimSpace(input.Address.Address) == "" {
		return fmt.Errorf("%w: name, phone and address are required", ErrOrderInvalidInput)
	}
	for i, item := range input.Items {
		if item.ProductID == 0 {
			return fmt.Errorf("%w: item %d has no product", ErrOrderInvalidInput, i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %d quantity must be at least 1", ErrOrderInvalidInput, i)
		}
		if item.Price < 0 || item.SellingPrice < 0 || item.Subtotal < 0 ||
			(item.DiscountPrice != nil && *item.DiscountPrice < 0) {
			return fmt.Errorf("%w: item %d amounts must not be negative", ErrOrderInvalidInput, i)
		}
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
