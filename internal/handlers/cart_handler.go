package handlers

import (
	"net/http"

	"pharmacy_backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CartHandler struct {
	cartService services.CartService
	logger      *zap.Logger
}

func NewCartHandler(cartService services.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{cartService: cartService, logger: logger}
}

type cartLineRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  *int `json:"quantity"`
}

type validateCartRequest struct {
	Items []cartLineRequest `json:"items"`
}

// ValidateCart always answers 200; an over-stocked cart is reported in the body.
func (h *CartHandler) ValidateCart(c *gin.Context) {
	var req validateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]services.OrderLine, len(req.Items))
	for i, item := range req.Items {
		quantity := 1
		if item.Quantity != nil {
			quantity = *item.Quantity
		}
		lines[i] = services.OrderLine{ProductID: item.ProductID, Quantity: quantity}
	}

	result, err := h.cartService.Validate(c.Request.Context(), lines)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
