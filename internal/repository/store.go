package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that take part in a single unit of work.
// Repositories obtained from the tx Store passed to Transaction share the
// same database transaction.
type Store interface {
	Products() ProductRepository
	Stock() StockLedger
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Users() UserRepository
	Branches() BranchRepository
	Notifications() NotificationRepository
	DeliveryCharges() DeliveryChargeRepository
	Prescriptions() PrescriptionRepository

	// Transaction runs fn atomically. Any error returned by fn rolls back
	// every write made through tx. Serialization failures and deadlocks are
	// reported as ErrConflict.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Products() ProductRepository { return NewProductRepository(s.db) }
func (s *store) Stock() StockLedger { return NewStockLedger(s.db) }
func (s *store) Orders() OrderRepository { return NewOrderRepository(s.db) }
func (s *store) OrderItems() OrderItemRepository { return NewOrderItemRepository(s.db) }
func (s *store) Users() UserRepository { return NewUserRepository(s.db) }
func (s *store) Branches() BranchRepository { return NewBranchRepository(s.db) }
func (s *store) Notifications() NotificationRepository { return NewNotificationRepository(s.db) }
func (s *store) DeliveryCharges() DeliveryChargeRepository { return NewDeliveryChargeRepository(s.db) }
func (s *store) Prescriptions() PrescriptionRepository { return NewPrescriptionRepository(s.db) }

func (s *store) Transaction(ctx context.Context, fn func(tx Store) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
	return classify(err)
}
