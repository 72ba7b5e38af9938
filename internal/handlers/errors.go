package handlers

import (
	"errors"
	"net/http"

	"pharmacy_backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var badRequestErrors = []error{
	services.ErrEmptyOrder,
	services.ErrInvalidProduct,
	services.ErrInvalidQuantity,
	services.ErrInvalidBranch,
	services.ErrInvalidPaymentMethod,
	services.ErrInvalidOrderType,
	services.ErrInvalidStatus,
	services.ErrMissingContactInfo,
	services.ErrInvalidContactNumber,
	services.ErrInvalidStateTransition,
	services.ErrMissingPrescription,
	services.ErrInvalidReviewStatus,
}

var notFoundErrors = []error{
	services.ErrOrderNotFound,
	services.ErrProductNotFound,
	services.ErrUserNotFound,
	services.ErrNotificationNotFound,
	services.ErrPrescriptionNotFound,
}

// respondError writes the JSON error for err. Stock shortfalls also carry
// the product and what is left so the client can fix the cart.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var shortfall *services.InsufficientStockError
	if errors.As(err, &shortfall) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      shortfall.Error(),
			"product_id": shortfall.ProductID,
			"available":  shortfall.Available,
		})
		return
	}

	switch {
	case isAny(err, badRequestErrors):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case isAny(err, notFoundErrors):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTransactionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": services.ErrTransactionConflict.Error()})
	case errors.Is(err, services.ErrPrescriptionReviewed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
