package handlers

import (
	"time"

	"shop_backend/internal/logging"
	"shop_backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig wires the HTTP surface. Idempotency is optional.
type RouterConfig struct {
	Orders         services.OrderService
	Products       services.ProductService
	Admin          services.AdminAuthenticator
	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration
	HealthChecks   map[string]Pinger
	Logger         *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	orderHandler := NewOrderHandler(cfg.Orders, logger)
	productHandler := NewProductHandler(cfg.Products, logger)
	healthHandler := NewHealthHandler(cfg.HealthChecks)
	admin := AdminGuard(cfg.Admin, logger)

	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger))

	api := router.Group("/api/v1")
	{
		api.GET("/health", healthHandler.Health)

		orders := api.Group("/orders")
		orders.POST("/create", Idempotency(cfg.Idempotency, cfg.IdempotencyTTL, logger), orderHandler.CreateOrder)
		orders.GET("/list", admin, orderHandler.ListOrders)
		orders.GET("/:id", admin, orderHandler.GetOrder)
		orders.PATCH("/status/:id", admin, orderHandler.UpdateStatus)
		orders.PATCH("/approve/:id", admin, orderHandler.ApproveOrder)
		orders.PATCH("/cancel/:id", admin, orderHandler.CancelOrder)
		orders.PATCH("/complete/:id", admin, orderHandler.CompleteOrder)
		orders.DELETE("/:id", admin, orderHandler.DeleteOrder)

		api.GET("/products/best-sellers", productHandler.BestSellers)
	}

	return router
}
