package services

import (
	"errors"
	"fmt"

	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/repository"
)

var (
	ErrEmptyOrder             = errors.New("order must contain at least one item")
	ErrInvalidProduct         = errors.New("invalid product")
	ErrInvalidQuantity        = errors.New("quantity must be greater than zero")
	ErrInvalidBranch          = errors.New("invalid branch")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrInvalidOrderType       = errors.New("invalid order type")
	ErrInvalidStatus          = errors.New("invalid order status")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrMissingContactInfo     = errors.New("shipping address and contact number are required")
	ErrInvalidContactNumber   = errors.New("contact number must be 11 digits starting with 03")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrTransactionConflict    = errors.New("transaction conflict, retry the request")
	ErrOrderNotFound          = errors.New("order not found")
	ErrProductNotFound        = errors.New("product not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrNotificationNotFound   = errors.New("notification not found")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrPrescriptionNotFound   = errors.New("prescription not found")
	ErrMissingPrescription    = errors.New("prescription image is required")
	ErrInvalidReviewStatus    = errors.New("review status must be Approved or Rejected")
	ErrPrescriptionReviewed   = errors.New("prescription has already been reviewed")
)

// InsufficientStockError names the product that stopped an order and the
// stock that was left when it did.
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: Only %d left.", e.ProductName, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type StateTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

func (e *StateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// translate turns storage errors into the errors callers of this package
// are expected to branch on. Unknown errors pass through wrapped.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var (
		stockErr      *InsufficientStockError
		transitionErr *StateTransitionError
	)
	switch {
	case errors.As(err, &stockErr), errors.As(err, &transitionErr):
		return err
	case errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrStatusChanged):
		return fmt.Errorf("%w: %v", ErrTransactionConflict, err)
	case errors.Is(err, repository.ErrOrderNotFound):
		return ErrOrderNotFound
	case errors.Is(err, repository.ErrProductNotFound):
		return ErrInvalidProduct
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrBranchNotFound):
		return ErrInvalidBranch
	case errors.Is(err, repository.ErrPrescriptionNotFound):
		return ErrPrescriptionNotFound
	}
	return err
}
