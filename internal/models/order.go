package models

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	UserID          uint            `json:"user" gorm:"not null;index"`
	User            *User           `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	BranchID        *uint           `json:"branch_id" gorm:"index"`
	Branch          *Branch         `json:"branch,omitempty" gorm:"constraint:OnDelete:SET NULL"`
	Status          OrderStatus     `json:"status" gorm:"size:20;not null;default:'Pending';index"`
	PaymentMethod   PaymentMethod   `json:"payment_method" gorm:"size:10;not null;default:'COD'"`
	OrderType       OrderType       `json:"order_type" gorm:"size:10;not null;default:'Normal'"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null;default:0"`
	ShippingAddress string          `json:"shipping_address" gorm:"type:text;not null"`
	ContactNumber   string          `json:"contact_number" gorm:"size:11"`
	Items           []OrderItem     `json:"items" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

type PaymentMethod string

const (
	PaymentCOD   PaymentMethod = "COD"
	PaymentPayed PaymentMethod = "PAYED"
)

type OrderType string

const (
	OrderTypeNormal OrderType = "Normal"
	OrderTypeQuick  OrderType = "Quick"
)

// orderTransitions lists the legal status edges. Cancelled and Delivered are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderShipped, OrderDelivered, OrderCancelled},
	OrderShipped: {OrderDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Priority orders statuses for the manager dashboard: open work first.
func (s OrderStatus) Priority() int {
	switch s {
	case OrderPending:
		return 1
	case OrderShipped:
		return 2
	case OrderDelivered:
		return 3
	case OrderCancelled:
		return 4
	}
	return 5
}

func (p PaymentMethod) Valid() bool {
	return p == PaymentCOD || p == PaymentPayed
}

func (t OrderType) Valid() bool {
	return t == OrderTypeNormal || t == OrderTypeQuick
}

var contactNumberPattern = regexp.MustCompile(`^03\d{9}$`)

// ValidContactNumber checks the 11 digit local mobile format, e.g. 03XXXXXXXXX.
func ValidContactNumber(number string) bool {
	return contactNumberPattern.MatchString(number)
}

// ComputeTotal sums quantity x price_at_purchase over the items.
func (o *Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}
