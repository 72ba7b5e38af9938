package models

import (
	"github.com/shopspring/decimal"
)

// OrderItem is immutable once written. PriceAtPurchase is a snapshot of the
// product price at reservation time.
type OrderItem struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	OrderID         uint            `json:"order_id" gorm:"not null;index"`
	ProductID       uint            `json:"product" gorm:"not null;index"`
	Product         *Product        `json:"product_detail,omitempty" gorm:"constraint:OnDelete:RESTRICT"`
	Quantity        int             `json:"quantity" gorm:"not null;check:chk_order_items_quantity,quantity > 0"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase" gorm:"type:decimal(10,2);not null"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
