package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"pharmacy_backend/internal/middleware"
	"pharmacy_backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck pings one backing dependency.
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

// APIHandler serves the catalog, the delivery charge, the caller's
// notification inbox and saved addresses.
type APIHandler struct {
	catalogService      services.CatalogService
	notificationService services.NotificationService
	userService         services.UserService
	checks              map[string]HealthCheck
	logger              *zap.Logger
}

func NewAPIHandler(
	catalogService services.CatalogService,
	notificationService services.NotificationService,
	userService services.UserService,
	checks map[string]HealthCheck,
	logger *zap.Logger,
) *APIHandler {
	return &APIHandler{
		catalogService:      catalogService,
		notificationService: notificationService,
		userService:         userService,
		checks:              checks,
		logger:              logger,
	}
}

// HealthCheck runs every dependency check and answers 503 when any fails.
func (h *APIHandler) HealthCheck(c *gin.Context) {
	if len(h.checks) == 0 {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "pharmacy-backend"})
		return
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "healthy", http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			h.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			results[name] = "unavailable"
			status, code = "unhealthy", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": "pharmacy-backend",
		"checks":  results,
	})
}

func (h *APIHandler) ListProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

func (h *APIHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "product")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *APIHandler) GetDeliveryCharge(c *gin.Context) {
	amount, err := h.catalogService.DeliveryCharge(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"delivery_charge": amount})
}

func (h *APIHandler) ListNotifications(c *gin.Context) {
	user := middleware.CurrentUser(c)

	notifications, unread, err := h.notificationService.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

func (h *APIHandler) MarkNotificationRead(c *gin.Context) {
	id, ok := parseID(c, "notification")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), middleware.CurrentUser(c).ID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type addressRequest struct {
	Address string `json:"address" binding:"required"`
}

func (h *APIHandler) ListAddresses(c *gin.Context) {
	addresses, err := h.userService.ListAddresses(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"addresses": addresses, "count": len(addresses)})
}

// AddAddress saves a shipping address. The newest one is the default used
// by quick orders.
func (h *APIHandler) AddAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address, err := h.userService.AddAddress(c.Request.Context(), middleware.CurrentUser(c).ID, req.Address)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, address)
}
