package handlers

import (
	"net/http"
	"strconv"

	"pharmacy_backend/internal/middleware"
	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orderService services.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService services.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, logger: logger}
}

type orderLineRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

type createOrderRequest struct {
	ShippingAddress string             `json:"shipping_address" binding:"required"`
	ContactNumber   string             `json:"contact_number" binding:"required,pkmobile"`
	BranchID        *uint              `json:"branch_id"`
	PaymentMethod   string             `json:"payment_method" binding:"omitempty,oneof=COD PAYED"`
	OrderType       string             `json:"order_type" binding:"omitempty,oneof=Normal Quick"`
	Items           []orderLineRequest `json:"items" binding:"required,min=1,dive"`
}

type quickOrderRequest struct {
	ProductID       uint   `json:"product_id" binding:"required"`
	Quantity        int    `json:"quantity" binding:"omitempty,gt=0"`
	ShippingAddress string `json:"shipping_address"`
	ContactNumber   string `json:"contact_number" binding:"omitempty,pkmobile"`
	BranchID        *uint  `json:"branch_id"`
	PaymentMethod   string `json:"payment_method" binding:"omitempty,oneof=COD PAYED"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=Pending Shipped Delivered Cancelled"`
}

func toOrderLines(items []orderLineRequest) []services.OrderLine {
	lines := make([]services.OrderLine, len(items))
	for i, item := range items {
		lines[i] = services.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return lines
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), middleware.CurrentUser(c), services.CreateOrderInput{
		ShippingAddress: req.ShippingAddress,
		ContactNumber:   req.ContactNumber,
		BranchID:        req.BranchID,
		PaymentMethod:   models.PaymentMethod(req.PaymentMethod),
		OrderType:       models.OrderType(req.OrderType),
		Items:           toOrderLines(req.Items),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) QuickOrder(c *gin.Context) {
	var req quickOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	order, err := h.orderService.QuickOrder(c.Request.Context(), middleware.CurrentUser(c), services.QuickOrderInput{
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		ShippingAddress: req.ShippingAddress,
		ContactNumber:   req.ContactNumber,
		BranchID:        req.BranchID,
		PaymentMethod:   models.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "order")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context(), middleware.CurrentUser(c), models.OrderStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *OrderHandler) ManagerOrders(c *gin.Context) {
	orders, err := h.orderService.ManagerOrders(c.Request.Context(), middleware.CurrentUser(c), models.OrderStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := parseID(c, "order")
	if !ok {
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "order")
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), middleware.CurrentUser(c), id, models.OrderStatus(req.Status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func parseID(c *gin.Context, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID"})
		return 0, false
	}
	return uint(id), true
}
