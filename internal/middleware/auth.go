package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// UserIDHeader is set by the upstream auth gateway once the caller is authenticated.
	UserIDHeader = "X-User-ID"
	userKey      = "user"
)

// UserLookup resolves the authenticated caller.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

func Authenticate(users UserLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserIDHeader)
		id, err := strconv.ParseUint(raw, 10, 64)
		if raw == "" || err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), uint(id))
		if err != nil && !errors.Is(err, services.ErrUserNotFound) {
			logger.Error("Failed to load caller", zap.Uint64("user_id", id), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if err != nil || !user.IsActive {
			logger.Warn("Rejected caller", zap.Uint64("user_id", id))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the caller stored by Authenticate, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
