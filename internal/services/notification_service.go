package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pharmacy_backend/internal/events"
	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/repository"

	"go.uber.org/zap"
)

// MessageSender delivers a text message to a mobile number.
type MessageSender interface {
	SendTextMessage(ctx context.Context, phone, message string) error
}

// NotificationService consumes order events. Each event becomes one stored
// notification for the order's owner plus, when a sender is configured, a
// WhatsApp message to their mobile.
type NotificationService interface {
	Publish(ctx context.Context, event events.OrderEvent) error
	List(ctx context.Context, userID uint) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, userID, notificationID uint) error
}

type notificationService struct {
	store  repository.Store
	sender MessageSender
	logger *zap.Logger
}

func NewNotificationService(store repository.Store, sender MessageSender, logger *zap.Logger) NotificationService {
	return &notificationService{store: store, sender: sender, logger: logger}
}

func (s *notificationService) Publish(ctx context.Context, event events.OrderEvent) error {
	user, err := s.store.Users().GetByID(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", event.UserID, err)
	}

	title, body := notificationText(event)
	orderID := event.OrderID
	notification := &models.Notification{
		UserID:  user.ID,
		OrderID: &orderID,
		Title:   title,
		Body:    body,
	}
	if err := s.store.Notifications().Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	s.logger.Info("Notification created",
		zap.String("title", title),
		zap.Uint("user_id", user.ID),
		zap.Uint("order_id", orderID),
	)

	if s.sender == nil || user.Mobile == "" {
		return nil
	}
	if err := s.sender.SendTextMessage(ctx, user.Mobile, title+"\n"+body); err != nil {
		// Delivery is best effort; the stored row stays.
		s.logger.Warn("Failed to send WhatsApp notification",
			zap.Uint("user_id", user.ID),
			zap.Uint("order_id", orderID),
			zap.Error(err),
		)
	}
	return nil
}

func notificationText(event events.OrderEvent) (string, string) {
	parts := make([]string, 0, len(event.Items))
	for _, item := range event.Items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.ProductName))
	}
	items := strings.Join(parts, ", ")

	if event.Type == events.OrderCreated {
		return "Order Placed", fmt.Sprintf("Your order #%d has been placed. Items: %s", event.OrderID, items)
	}
	return "Order Update", fmt.Sprintf("Your order #%d is now %s. Items: %s", event.OrderID, event.Status, items)
}

func (s *notificationService) List(ctx context.Context, userID uint) ([]models.Notification, int64, error) {
	notifications, err := s.store.Notifications().ListByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.store.Notifications().CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return notifications, unread, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	err := s.store.Notifications().MarkRead(ctx, notificationID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}
