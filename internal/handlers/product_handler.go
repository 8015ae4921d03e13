package handlers

import (
	"net/http"

	"shop_backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductHandler struct {
	productService services.ProductService
	logger         *zap.Logger
}

func NewProductHandler(productService services.ProductService, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{productService: productService, logger: logger}
}

func (h *ProductHandler) BestSellers(c *gin.Context) {
	products, err := h.productService.BestSellers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Best selling products retrieved successfully", products)
}
