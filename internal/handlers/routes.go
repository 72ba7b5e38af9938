package handlers

import (
	"pharmacy_backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router groups the handlers mounted on the HTTP server.
type Router struct {
	API           *APIHandler
	Orders        *OrderHandler
	Cart          *CartHandler
	Prescriptions *PrescriptionHandler
	WhatsApp      *WhatsAppHandler
}

// Register mounts the public, authenticated and webhook routes on r.
func (rt Router) Register(r gin.IRouter, users middleware.UserLookup, logger *zap.Logger) {
	r.GET("/health", rt.API.HealthCheck)

	if rt.WhatsApp != nil {
		r.POST("/api/whatsapp/webhook", rt.WhatsApp.HandleWebhook)
	}

	public := r.Group("/api")
	{
		public.GET("/products", rt.API.ListProducts)
		public.GET("/products/:id", rt.API.GetProduct)
		public.GET("/delivery-charges", rt.API.GetDeliveryCharge)
		public.POST("/cart/validate", rt.Cart.ValidateCart)
	}

	api := r.Group("/api", middleware.Authenticate(users, logger))
	{
		api.POST("/orders", rt.Orders.CreateOrder)
		api.GET("/orders", rt.Orders.ListOrders)
		api.POST("/orders/quick-order", rt.Orders.QuickOrder)
		api.GET("/orders/:id", rt.Orders.GetOrder)
		api.POST("/orders/:id/cancel", rt.Orders.CancelOrder)
		api.PATCH("/orders/:id/status", rt.Orders.UpdateStatus)

		api.GET("/manager/orders", rt.Orders.ManagerOrders)

		api.GET("/notifications", rt.API.ListNotifications)
		api.POST("/notifications/:id/read", rt.API.MarkNotificationRead)

		api.GET("/addresses", rt.API.ListAddresses)
		api.POST("/addresses", rt.API.AddAddress)

		if rt.Prescriptions != nil {
			api.POST("/prescriptions", rt.Prescriptions.Upload)
			api.GET("/prescriptions", rt.Prescriptions.List)
			api.GET("/prescriptions/:id", rt.Prescriptions.Get)
			api.GET("/prescriptions/:id/image", rt.Prescriptions.Image)
			api.PATCH("/prescriptions/:id/review", rt.Prescriptions.Review)
		}
	}
}
