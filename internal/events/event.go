// Package events carries order state changes out of the order coordinator.
// Events are emitted once per committed change, never from inside a transaction.
package events

import (
	"context"
	"errors"
	"time"

	"pharmacy_backend/internal/models"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	OrderCreated       EventType = "order.created"
	OrderStatusChanged EventType = "order.status_changed"
)

type OrderEvent struct {
	Type           EventType          `json:"event_type"`
	OrderID        uint               `json:"order_id"`
	UserID         uint               `json:"user_id"`
	BranchID       *uint              `json:"branch_id,omitempty"`
	OrderType      models.OrderType   `json:"order_type"`
	Status         models.OrderStatus `json:"status"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	Items          []OrderEventItem   `json:"items"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

type OrderEventItem struct {
	ProductID       uint            `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// NewOrderEvent snapshots a committed order. previous is empty for OrderCreated.
func NewOrderEvent(eventType EventType, order *models.Order, previous models.OrderStatus) OrderEvent {
	items := make([]OrderEventItem, 0, len(order.Items))
	for _, item := range order.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		items = append(items, OrderEventItem{
			ProductID:       item.ProductID,
			ProductName:     name,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}

	return OrderEvent{
		Type:           eventType,
		OrderID:        order.ID,
		UserID:         order.UserID,
		BranchID:       order.BranchID,
		OrderType:      order.OrderType,
		Status:         order.Status,
		PreviousStatus: previous,
		TotalAmount:    order.TotalAmount,
		Items:          items,
		OccurredAt:     time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

type PublisherFunc func(ctx context.Context, event OrderEvent) error

func (f PublisherFunc) Publish(ctx context.Context, event OrderEvent) error {
	return f(ctx, event)
}

// Fanout delivers every event to each publisher in turn. One failing
// publisher does not stop the others; their errors are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event OrderEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops events. Used when nothing downstream is configured.
var Discard Publisher = PublisherFunc(func(context.Context, OrderEvent) error { return nil })
