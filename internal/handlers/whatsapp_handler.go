package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookTokenHeader carries the secret shared with the WhatsApp gateway.
const WebhookTokenHeader = "X-Webhook-Token"

// WhatsAppHandler answers slash commands sent to the shop's WhatsApp number.
type WhatsAppHandler struct {
	webhookToken   string
	sender         services.MessageSender
	userService    services.UserService
	orderService   services.OrderService
	catalogService services.CatalogService
	logger         *zap.Logger
}

// NewWhatsAppHandler rejects every webhook call whose token header does not
// match webhookToken.
func NewWhatsAppHandler(
	webhookToken string,
	sender services.MessageSender,
	userService services.UserService,
	orderService services.OrderService,
	catalogService services.CatalogService,
	logger *zap.Logger,
) *WhatsAppHandler {
	return &WhatsAppHandler{
		webhookToken:   webhookToken,
		sender:         sender,
		userService:    userService,
		orderService:   orderService,
		catalogService: catalogService,
		logger:         logger,
	}
}

type WebhookRequest struct {
	SenderID  string `json:"sender_id"`
	ChatID    string `json:"chat_id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Pushname  string `json:"pushname"`
	Message   struct {
		Text string `json:"text"`
		ID   string `json:"id"`
	} `json:"message"`
}

func (h *WhatsAppHandler) authorized(c *gin.Context) bool {
	if h.webhookToken == "" {
		return false
	}
	got := c.GetHeader(WebhookTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookToken)) == 1
}

func (h *WhatsAppHandler) HandleWebhook(c *gin.Context) {
	if !h.authorized(c) {
		h.logger.Warn("Rejected WhatsApp webhook call", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook token"})
		return
	}

	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	// from looks like 923001234567@s.whatsapp.net
	phoneNumber := req.From
	if phoneNumber == "" {
		phoneNumber = req.SenderID
	}
	phoneNumber = strings.TrimSuffix(phoneNumber, "@s.whatsapp.net")
	if phoneNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing sender"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.userService.GetUserByMobile(ctx, phoneNumber)
	if err != nil || !user.IsActive {
		if err != nil && !errors.Is(err, services.ErrUserNotFound) {
			h.logger.Error("Failed to look up WhatsApp sender", zap.String("phone", phoneNumber), zap.Error(err))
		}
		h.reply(ctx, phoneNumber, "❌ User not found. Please register in the app first.")
		c.JSON(http.StatusOK, gin.H{"status": "user_not_found"})
		return
	}

	response := h.processCommand(ctx, user, req.Message.Text)
	if err := h.reply(ctx, phoneNumber, response); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *WhatsAppHandler) reply(ctx context.Context, phone, message string) error {
	if h.sender == nil {
		return nil
	}
	if err := h.sender.SendTextMessage(ctx, phone, message); err != nil {
		h.logger.Warn("Failed to send WhatsApp reply", zap.String("phone", phone), zap.Error(err))
		return err
	}
	return nil
}

func (h *WhatsAppHandler) processCommand(ctx context.Context, user *models.User, message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return "❌ Empty message. Type /help for available commands."
	}
	if !strings.HasPrefix(message, "/") {
		return "🤖 I only understand commands. Type /help for available options."
	}

	parts := strings.Fields(message)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	if command == "/address" {
		return h.address(ctx, user, strings.TrimSpace(message[len(parts[0]):]))
	}

	switch command {
	case "/help":
		return h.getHelpMessage(user)
	case "/products":
		return h.listProducts(ctx)
	case "/my_orders":
		return h.getUserOrders(ctx, user)
	case "/order":
		return h.getOrder(ctx, user, args)
	case "/quick":
		return h.quickOrder(ctx, user, args)
	case "/cancel":
		return h.cancelOrder(ctx, user, args)
	}

	if user.IsStaff || user.IsSuperuser {
		switch command {
		case "/pending":
			return h.pendingOrders(ctx, user)
		case "/ship":
			return h.setStatus(ctx, user, args, models.OrderShipped)
		case "/deliver":
			return h.setStatus(ctx, user, args, models.OrderDelivered)
		}
	}

	return "❌ Unknown command. Type /help for available commands."
}

func (h *WhatsAppHandler) getHelpMessage(user *models.User) string {
	help := `📱 *Available Commands:*

/products - List available medicines
/my_orders - View your orders
/order [order_id] - Show one order
/address [text] - Save your delivery address, or show it
/quick [product_id] [quantity] - Order to your saved address
/cancel [order_id] - Cancel a pending order
/help - Show this help message
`
	if user.IsStaff || user.IsSuperuser {
		help += `
*Branch Commands:*
/pending - Open orders for your branch
/ship [order_id] - Mark an order shipped
/deliver [order_id] - Mark an order delivered
`
	}
	return help
}

func (h *WhatsAppHandler) listProducts(ctx context.Context) string {
	products, err := h.catalogService.ListProducts(ctx)
	if err != nil {
		return "❌ Failed to load products."
	}
	if len(products) == 0 {
		return "💊 No products available."
	}

	var b strings.Builder
	b.WriteString("💊 *Products:*\n\n")
	for _, p := range products {
		fmt.Fprintf(&b, "#%d %s - Rs %s (%d in stock)\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock)
	}
	return b.String()
}

func (h *WhatsAppHandler) getUserOrders(ctx context.Context, user *models.User) string {
	orders, err := h.orderService.ListOrders(ctx, user, "")
	if err != nil {
		return "❌ Failed to get orders."
	}
	if len(orders) == 0 {
		return "📦 No orders found."
	}

	var b strings.Builder
	b.WriteString("📦 *Your Orders:*\n\n")
	for _, order := range orders {
		writeOrderSummary(&b, &order)
	}
	return b.String()
}

func (h *WhatsAppHandler) getOrder(ctx context.Context, user *models.User, args []string) string {
	id, ok := orderIDArg(args)
	if !ok {
		return "❌ Usage: /order [order_id]"
	}

	order, err := h.orderService.GetOrder(ctx, user, id)
	if err != nil {
		return commandError(err)
	}

	var b strings.Builder
	writeOrderSummary(&b, order)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "  %dx %s @ Rs %s\n", item.Quantity, itemName(item), item.PriceAtPurchase.StringFixed(2))
	}
	return b.String()
}

func (h *WhatsAppHandler) quickOrder(ctx context.Context, user *models.User, args []string) string {
	if len(args) == 0 || len(args) > 2 {
		return "❌ Usage: /quick [product_id] [quantity]"
	}
	productID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || productID == 0 {
		return "❌ Invalid product ID"
	}
	quantity := 1
	if len(args) == 2 {
		quantity, err = strconv.Atoi(args[1])
		if err != nil {
			return "❌ Invalid quantity"
		}
	}

	order, err := h.orderService.QuickOrder(ctx, user, services.QuickOrderInput{
		ProductID: uint(productID),
		Quantity:  quantity,
	})
	if err != nil {
		return commandError(err)
	}
	return fmt.Sprintf("✅ Order #%d placed. Total: Rs %s", order.ID, order.TotalAmount.StringFixed(2))
}

// address saves text as the new default address. Without text it shows
// the current default.
func (h *WhatsAppHandler) address(ctx context.Context, user *models.User, text string) string {
	if text == "" {
		addresses, err := h.userService.ListAddresses(ctx, user.ID)
		if err != nil {
			return commandError(err)
		}
		if len(addresses) == 0 {
			return "📍 No saved address. Send /address [your address] to save one."
		}
		return "📍 Delivery address: " + addresses[0].Address
	}

	if _, err := h.userService.AddAddress(ctx, user.ID, text); err != nil {
		return commandError(err)
	}
	return "✅ Address saved. Quick orders will be delivered to: " + text
}

func (h *WhatsAppHandler) cancelOrder(ctx context.Context, user *models.User, args []string) string {
	id, ok := orderIDArg(args)
	if !ok {
		return "❌ Usage: /cancel [order_id]"
	}

	if _, err := h.orderService.CancelOrder(ctx, user, id); err != nil {
		return commandError(err)
	}
	return fmt.Sprintf("✅ Order #%d cancelled.", id)
}

func (h *WhatsAppHandler) pendingOrders(ctx context.Context, user *models.User) string {
	orders, err := h.orderService.ManagerOrders(ctx, user, models.OrderPending)
	if err != nil {
		return commandError(err)
	}
	if len(orders) == 0 {
		return "📦 No pending orders."
	}

	var b strings.Builder
	b.WriteString("📦 *Pending Orders:*\n\n")
	for _, order := range orders {
		writeOrderSummary(&b, &order)
	}
	return b.String()
}

func (h *WhatsAppHandler) setStatus(ctx context.Context, user *models.User, args []string, status models.OrderStatus) string {
	id, ok := orderIDArg(args)
	if !ok {
		return "❌ Usage: /" + strings.ToLower(string(status)) + " [order_id]"
	}

	if _, err := h.orderService.UpdateStatus(ctx, user, id, status); err != nil {
		return commandError(err)
	}
	return fmt.Sprintf("✅ Order #%d is now %s.", id, status)
}

func orderIDArg(args []string) (uint, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func writeOrderSummary(b *strings.Builder, order *models.Order) {
	fmt.Fprintf(b, "*Order #%d*\n", order.ID)
	fmt.Fprintf(b, "Status: %s\n", order.Status)
	fmt.Fprintf(b, "Total: Rs %s\n", order.TotalAmount.StringFixed(2))
	fmt.Fprintf(b, "Date: %s\n", order.CreatedAt.Format("2006-01-02"))
}

func itemName(item models.OrderItem) string {
	if item.Product != nil {
		return item.Product.Name
	}
	return fmt.Sprintf("product #%d", item.ProductID)
}

// commandError turns a service failure into a chat reply. Unexpected
// errors stay generic.
func commandError(err error) string {
	var shortfall *services.InsufficientStockError
	switch {
	case errors.As(err, &shortfall):
		return "❌ " + shortfall.Error()
	case isAny(err, badRequestErrors), isAny(err, notFoundErrors),
		errors.Is(err, services.ErrPermissionDenied), errors.Is(err, services.ErrTransactionConflict):
		return "❌ " + err.Error()
	default:
		return "❌ Something went wrong. Please try again."
	}
}
