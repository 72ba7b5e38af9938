package repository

import (
	"context"

	"pharmacy_backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DeliveryChargeRepository interface {
	// Current returns the configured charge, or a zero amount when none is set.
	Current(ctx context.Context) (decimal.Decimal, error)
	Set(ctx context.Context, amount decimal.Decimal) error
}

type deliveryChargeRepository struct {
	db *gorm.DB
}

func NewDeliveryChargeRepository(db *gorm.DB) DeliveryChargeRepository {
	return &deliveryChargeRepository{db: db}
}

func (r *deliveryChargeRepository) Current(ctx context.Context) (decimal.Decimal, error) {
	var charges []models.DeliveryCharge
	err := r.db.WithContext(ctx).Order("id").Limit(1).Find(&charges).Error
	if err != nil || len(charges) == 0 {
		return decimal.Zero, err
	}
	return charges[0].Amount, nil
}

func (r *deliveryChargeRepository) Set(ctx context.Context, amount decimal.Decimal) error {
	var charge models.DeliveryCharge
	err := r.db.WithContext(ctx).Order("id").Limit(1).Find(&charge).Error
	if err != nil {
		return err
	}
	charge.Amount = amount
	return r.db.WithContext(ctx).Save(&charge).Error
}
