package services

import (
	"context"
	"fmt"

	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/repository"
)

type CartValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// CartService answers "would this cart fit in stock right now". It reserves
// nothing, so a later CreateOrder can still fail.
type CartService interface {
	Validate(ctx context.Context, lines []OrderLine) (*CartValidation, error)
}

type cartService struct {
	products repository.ProductRepository
}

func NewCartService(products repository.ProductRepository) CartService {
	return &cartService{products: products}
}

func (s *cartService) Validate(ctx context.Context, lines []OrderLine) (*CartValidation, error) {
	ids := make([]uint, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	found, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	byID := make(map[uint]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	result := &CartValidation{Valid: true}
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		switch {
		case !ok:
			result.Errors = append(result.Errors, fmt.Sprintf("Product %d not found", line.ProductID))
		case line.Quantity > product.Stock:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: Only %d left.", product.Name, product.Stock))
		}
	}
	result.Valid = len(result.Errors) == 0
	return result, nil
}
