package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"shop_backend/internal/models"
	"shop_backend/internal/pagination"
	"shop_backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService services.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService services.OrderService, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{orderService: orderService, logger: logger}
}

type CreateOrderRequest struct {
	DeliveryCharge *float64                 `json:"delivery_charge" binding:"required,gte=0"`
	Subtotal       *float64                 `json:"subtotal" binding:"required,gte=0"`
	TotalPrice     *float64                 `json:"total_price" binding:"required,gte=0"`
	Address        AddressRequest           `json:"address"`
	OrderItems     []CreateOrderItemRequest `json:"order_items" binding:"required,min=1,dive"`
}

type AddressRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address" binding:"required"`
}

type CreateOrderItemRequest struct {
	ProductID     uint               `json:"productId" binding:"required,gt=0"`
	Quantity      int                `json:"quantity" binding:"min=1"`
	Attributes    []AttributeRequest `json:"attributes" binding:"omitempty,dive"`
	Price         *float64           `json:"price" binding:"required,gte=0"`
	DiscountPrice *float64           `json:"discount_price" binding:"omitempty,gte=0"`
	SellingPrice  *float64           `json:"selling_price" binding:"required,gte=0"`
	Subtotal      *float64           `json:"subtotal" binding:"required,gte=0"`
}

type AttributeRequest struct {
	Title string `json:"title" binding:"required"`
	Value string `json:"value" binding:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending processing completed cancelled returned"`
}

func (r CreateOrderRequest) toInput(client services.ClientInfo) services.CreateOrderInput {
	items := make([]services.CreateOrderItemInput, 0, len(r.OrderItems))
	for _, item := range r.OrderItems {
		attributes := make([]models.Attribute, 0, len(item.Attributes))
		for _, attr := range item.Attributes {
			attributes = append(attributes, models.Attribute{Title: attr.Title, Value: attr.Value})
		}
		items = append(items, services.CreateOrderItemInput{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			Attributes:    attributes,
			Price:         *item.Price,
			DiscountPrice: item.DiscountPrice,
			SellingPrice:  *item.SellingPrice,
			Subtotal:      *item.Subtotal,
		})
	}
	return services.CreateOrderInput{
		DeliveryCharge: *r.DeliveryCharge,
		Subtotal:       *r.Subtotal,
		TotalPrice:     *r.TotalPrice,
		Address: services.AddressInput{
			Name:    r.Address.Name,
			Phone:   r.Address.Phone,
			Address: r.Address.Address,
		},
		Items:  items,
		Client: client,
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), req.toInput(clientInfo(c)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Order created successfully", order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := services.OrderFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	}
	page, err := h.orderService.ListOrders(c.Request.Context(), filter, pagination.FromQuery(c.Request.URL.Query()))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondPage(c, "Orders retrieved successfully", page.Meta, page.Data)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Order retrieved successfully", order)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}
	order, err := h.orderService.SetStatus(c.Request.Context(), id, models.OrderStatus(req.Status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Order status updated successfully", order)
}

func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	h.transition(c, h.orderService.Approve, "Order approved successfully")
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	h.transition(c, h.orderService.Cancel, "Order cancelled successfully")
}

func (h *OrderHandler) CompleteOrder(c *gin.Context) {
	h.transition(c, h.orderService.Complete, "Order completed successfully")
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := h.orderService.DeleteOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Order deleted successfully", order)
}

func (h *OrderHandler) transition(c *gin.Context, apply func(context.Context, uint) (*models.Order, error), message string) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := apply(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, message, order)
}

func orderID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		respondFailure(c, http.StatusBadRequest, "Invalid order id", errorMessage{Path: "id", Message: "id must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

// clientInfo collects the browser details used for purchase tracking.
func clientInfo(c *gin.Context) services.ClientInfo {
	info := services.ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		SourceURL: c.Request.Referer(),
	}
	if info.SourceURL == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = strings.ToLower(proto)
		}
		info.SourceURL = scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
	}
	if fbp, err := c.Cookie("_fbp"); err == nil {
		info.FBP = fbp
	}
	if fbc, err := c.Cookie("_fbc"); err == nil {
		info.FBC = fbc
	}
	return info
}
