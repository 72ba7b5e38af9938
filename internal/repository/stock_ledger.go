package repository

import (
	"context"
	"fmt"

	"pharmacy_backend/internal/models"

	"gorm.io/gorm"
)

// StockLedger is the only write path for products.stock. Both operations
// run on whatever handle the ledger was built from, so inside
// Store.Transaction they commit or roll back with the owning order.
type StockLedger interface {
	// Reserve decrements stock by quantity, failing with a
	// *StockShortfallError when quantity exceeds the current stock.
	Reserve(ctx context.Context, productID uint, quantity int) error
	// Release increments stock by quantity unconditionally.
	Release(ctx context.Context, productID uint, quantity int) error
	Available(ctx context.Context, productID uint) (int, error)
}

// StockShortfallError reports the stock seen when a reservation was refused.
type StockShortfallError struct {
	ProductID uint
	Requested int
	Available int
}

func (e *StockShortfallError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockShortfallError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type stockLedger struct {
	db *gorm.DB
}

func NewStockLedger(db *gorm.DB) StockLedger {
	return &stockLedger{db: db}
}

func (l *stockLedger) Reserve(ctx context.Context, productID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	// Check and decrement in one statement so two reservations can never
	// both act on the same stale value.
	res := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	available, err := l.Available(ctx, productID)
	if err != nil {
		return err
	}
	return &StockShortfallError{ProductID: productID, Requested: quantity, Available: available}
}

func (l *stockLedger) Release(ctx context.Context, productID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	res := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (l *stockLedger) Available(ctx context.Context, productID uint) (int, error) {
	var product models.Product
	err := l.db.WithContext(ctx).Select("id", "stock").First(&product, productID).Error
	if err != nil {
		return 0, notFound(err, ErrProductNotFound)
	}
	return product.Stock, nil
}
