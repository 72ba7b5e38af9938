package services

import (
	"context"
	"errors"

	"pharmacy_backend/internal/events"
	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductCache interface {
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product) error
	DeleteProducts(ctx context.Context, ids ...uint) error
}

// CatalogService serves the read side of products and the delivery charge.
// It also listens to order events so cached stock never outlives a
// reservation or a restock.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	DeliveryCharge(ctx context.Context) (decimal.Decimal, error)
	Publish(ctx context.Context, event events.OrderEvent) error
}

type catalogService struct {
	store  repository.Store
	cache  ProductCache
	logger *zap.Logger
}

func NewCatalogService(store repository.Store, cache ProductCache, logger *zap.Logger) CatalogService {
	return &catalogService{store: store, cache: cache, logger: logger}
}

func (s *catalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.Products().List(ctx, true)
}

func (s *catalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	if s.cache != nil {
		if product, err := s.cache.GetProduct(ctx, id); err == nil {
			return product, nil
		}
	}

	product, err := s.store.Products().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !product.IsActive) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, product); err != nil {
			s.logger.Warn("Failed to cache product", zap.Uint("product_id", id), zap.Error(err))
		}
	}
	return product, nil
}

func (s *catalogService) DeliveryCharge(ctx context.Context) (decimal.Decimal, error) {
	return s.store.DeliveryCharges().Current(ctx)
}

// Publish drops cached products touched by an order event.
func (s *catalogService) Publish(ctx context.Context, event events.OrderEvent) error {
	if s.cache == nil || len(event.Items) == 0 {
		return nil
	}
	ids := make([]uint, len(event.Items))
	for i, item := range event.Items {
		ids[i] = item.ProductID
	}
	return s.cache.DeleteProducts(ctx, ids...)
}
