package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DeliveryCharge struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null;default:0"`
	UpdatedAt time.Time       `json:"updated_at"`
}
