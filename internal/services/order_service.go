package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"pharmacy_backend/internal/events"
	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderLine struct {
	ProductID uint
	Quantity  int
}

type CreateOrderInput struct {
	ShippingAddress string
	ContactNumber   string
	BranchID        *uint
	PaymentMethod   models.PaymentMethod
	OrderType       models.OrderType
	Items           []OrderLine
}

// QuickOrderInput buys a single product. Empty address and contact fall
// back to the user's profile.
type QuickOrderInput struct {
	ProductID       uint
	Quantity        int
	ShippingAddress string
	ContactNumber   string
	BranchID        *uint
	PaymentMethod   models.PaymentMethod
}

// OrderCache is an optional read cache in front of GetOrder.
type OrderCache interface {
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	SetOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, id uint) error
}

type OrderService interface {
	CreateOrder(ctx context.Context, user *models.User, input CreateOrderInput) (*models.Order, error)
	QuickOrder(ctx context.Context, user *models.User, input QuickOrderInput) (*models.Order, error)
	CancelOrder(ctx context.Context, actor *models.User, orderID uint) (*models.Order, error)
	UpdateStatus(ctx context.Context, actor *models.User, orderID uint, status models.OrderStatus) (*models.Order, error)
	GetOrder(ctx context.Context, actor *models.User, orderID uint) (*models.Order, error)
	ListOrders(ctx context.Context, actor *models.User, status models.OrderStatus) ([]models.Order, error)
	// ManagerOrders lists the orders a staff member is responsible for,
	// open work first and oldest first within a status.
	ManagerOrders(ctx context.Context, actor *models.User, status models.OrderStatus) ([]models.Order, error)
}

type orderService struct {
	store     repository.Store
	publisher events.Publisher
	cache     OrderCache
	logger    *zap.Logger
}

// NewOrderService wires the coordinator. publisher and cache may be nil.
func NewOrderService(store repository.Store, publisher events.Publisher, cache OrderCache, logger *zap.Logger) OrderService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &orderService{store: store, publisher: publisher, cache: cache, logger: logger}
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("order-service").Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *orderService) CreateOrder(ctx context.Context, user *models.User, input CreateOrderInput) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "CreateOrder")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("user_id", int(user.ID)), attribute.Int("items", len(input.Items)))

	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if input.ShippingAddress == "" || input.ContactNumber == "" {
		return nil, ErrMissingContactInfo
	}
	if !models.ValidContactNumber(input.ContactNumber) {
		return nil, ErrInvalidContactNumber
	}
	payment, err := paymentOrDefault(input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	orderType := input.OrderType
	if orderType == "" {
		orderType = models.OrderTypeNormal
	}
	if !orderType.Valid() {
		return nil, ErrInvalidOrderType
	}

	return s.place(ctx, &models.Order{
		UserID:          user.ID,
		BranchID:        input.BranchID,
		Status:          models.OrderPending,
		PaymentMethod:   payment,
		OrderType:       orderType,
		ShippingAddress: input.ShippingAddress,
		ContactNumber:   input.ContactNumber,
	}, input.Items)
}

func (s *orderService) QuickOrder(ctx context.Context, user *models.User, input QuickOrderInput) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "QuickOrder")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.Int("user_id", int(user.ID)),
		attribute.Int("product_id", int(input.ProductID)),
		attribute.Int("quantity", input.Quantity),
	)

	if input.ProductID == 0 {
		return nil, ErrInvalidProduct
	}

	address := input.ShippingAddress
	if address == "" {
		if address, err = s.store.Users().DefaultAddress(ctx, user.ID); err != nil {
			return nil, translate(err)
		}
	}
	contact := input.ContactNumber
	if contact == "" {
		contact = user.Mobile
	}
	if address == "" || contact == "" {
		return nil, ErrMissingContactInfo
	}
	if !models.ValidContactNumber(contact) {
		return nil, ErrInvalidContactNumber
	}
	payment, err := paymentOrDefault(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	return s.place(ctx, &models.Order{
		UserID:          user.ID,
		BranchID:        input.BranchID,
		Status:          models.OrderPending,
		PaymentMethod:   payment,
		OrderType:       models.OrderTypeQuick,
		ShippingAddress: address,
		ContactNumber:   contact,
	}, []OrderLine{{ProductID: input.ProductID, Quantity: input.Quantity}})
}

// place runs the whole creation in one transaction: lock products in id
// order, insert the header, reserve every line in request order, insert the
// items and fix up the total. The first failure discards all of it.
func (s *orderService) place(ctx context.Context, order *models.Order, lines []OrderLine) (*models.Order, error) {
	var items []models.OrderItem

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		products, err := lockProducts(ctx, tx, lines)
		if err != nil {
			return err
		}
		if order.BranchID != nil {
			if _, err := tx.Branches().GetByID(ctx, *order.BranchID); err != nil {
				return err
			}
		}

		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		items = make([]models.OrderItem, 0, len(lines))
		total := decimal.Zero
		for _, line := range lines {
			product := products[line.ProductID]
			if err := tx.Stock().Reserve(ctx, product.ID, line.Quantity); err != nil {
				var shortfall *repository.StockShortfallError
				if errors.As(err, &shortfall) {
					return &InsufficientStockError{
						ProductID:   product.ID,
						ProductName: product.Name,
						Requested:   line.Quantity,
						Available:   shortfall.Available,
					}
				}
				return err
			}

			item := models.OrderItem{
				OrderID:         order.ID,
				ProductID:       product.ID,
				Product:         product,
				Quantity:        line.Quantity,
				PriceAtPurchase: product.Price,
			}
			total = total.Add(item.LineTotal())
			items = append(items, item)
		}

		if err := tx.OrderItems().CreateBatch(ctx, items); err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		if err := tx.Orders().UpdateTotal(ctx, order.ID, total); err != nil {
			return err
		}
		order.TotalAmount = total
		return nil
	})
	if err != nil {
		err = translate(err)
		s.logger.Warn("Order placement failed",
			zap.Uint("user_id", order.UserID),
			zap.String("order_type", string(order.OrderType)),
			zap.Error(err),
		)
		return nil, err
	}

	created := s.reload(ctx, order.ID)
	if created == nil {
		order.Items = items
		created = order
	}

	s.logger.Info("Order placed",
		zap.Uint("order_id", created.ID),
		zap.Uint("user_id", created.UserID),
		zap.String("order_type", string(created.OrderType)),
		zap.String("total_amount", created.TotalAmount.StringFixed(2)),
	)
	s.emit(ctx, events.NewOrderEvent(events.OrderCreated, created, ""))
	return created, nil
}

// lockProducts resolves every requested line to an active product, holding
// row locks until the transaction ends.
func lockProducts(ctx context.Context, tx repository.Store, lines []OrderLine) (map[uint]*models.Product, error) {
	ids := make([]uint, 0, len(lines))
	seen := make(map[uint]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if _, dup := seen[line.ProductID]; dup {
			return nil, fmt.Errorf("%w %d: listed more than once", ErrInvalidProduct, line.ProductID)
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}

	found, err := tx.Products().LockByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	products := make(map[uint]*models.Product, len(found))
	for i := range found {
		if found[i].IsActive {
			products[found[i].ID] = &found[i]
		}
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, fmt.Errorf("%w %d", ErrInvalidProduct, id)
		}
	}
	return products, nil
}

func (s *orderService) CancelOrder(ctx context.Context, actor *models.User, orderID uint) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "CancelOrder")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("order_id", int(orderID)))

	var previous models.OrderStatus
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		locked, err := tx.Orders().LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if locked.UserID != actor.ID && !actor.CanManage(locked.BranchID) {
			return ErrOrderNotFound
		}
		previous = locked.Status
		return cancelLocked(ctx, tx, locked)
	})
	if err != nil {
		return nil, translate(err)
	}

	return s.afterStatusChange(ctx, orderID, previous), nil
}

// cancelLocked releases every item back to stock in product id order and
// marks the order Cancelled. order must be row-locked by tx.
func cancelLocked(ctx context.Context, tx repository.Store, order *models.Order) error {
	if !order.Status.CanTransitionTo(models.OrderCancelled) {
		return &StateTransitionError{From: order.Status, To: models.OrderCancelled}
	}
	items, err := tx.OrderItems().GetByOrderID(ctx, order.ID)
	if err != nil {
		return err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	for _, item := range items {
		if err := tx.Stock().Release(ctx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("failed to restock product %d: %w", item.ProductID, err)
		}
	}
	return tx.Orders().TransitionStatus(ctx, order.ID, order.Status, models.OrderCancelled)
}

func (s *orderService) UpdateStatus(ctx context.Context, actor *models.User, orderID uint, status models.OrderStatus) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "UpdateStatus")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("order_id", int(orderID)), attribute.String("status", string(status)))

	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if !actor.IsStaff && !actor.IsSuperuser {
		return nil, ErrPermissionDenied
	}

	var previous models.OrderStatus
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		locked, err := tx.Orders().LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !actor.CanManage(locked.BranchID) {
			return ErrOrderNotFound
		}
		previous = locked.Status

		if status == models.OrderCancelled {
			return cancelLocked(ctx, tx, locked)
		}
		if !locked.Status.CanTransitionTo(status) {
			return &StateTransitionError{From: locked.Status, To: status}
		}
		return tx.Orders().TransitionStatus(ctx, locked.ID, locked.Status, status)
	})
	if err != nil {
		return nil, translate(err)
	}

	return s.afterStatusChange(ctx, orderID, previous), nil
}

// afterStatusChange replaces the cached copy with the committed order so a
// reader that raced the change cannot leave the old status behind.
func (s *orderService) afterStatusChange(ctx context.Context, orderID uint, previous models.OrderStatus) *models.Order {
	order := s.reload(ctx, orderID)
	if order == nil {
		s.uncache(ctx, orderID)
		// The change is committed; report it with what we know.
		return &models.Order{ID: orderID}
	}
	if s.cache != nil {
		if err := s.cache.SetOrder(ctx, order); err != nil {
			s.logger.Warn("Failed to refresh cached order", zap.Uint("order_id", orderID), zap.Error(err))
			s.uncache(ctx, orderID)
		}
	}

	s.logger.Info("Order status changed",
		zap.Uint("order_id", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(order.Status)),
	)
	s.emit(ctx, events.NewOrderEvent(events.OrderStatusChanged, order, previous))
	return order
}

func (s *orderService) GetOrder(ctx context.Context, actor *models.User, orderID uint) (*models.Order, error) {
	order := s.cached(ctx, orderID)
	if order == nil {
		var err error
		if order, err = s.store.Orders().GetByID(ctx, orderID); err != nil {
			return nil, translate(err)
		}
		if s.cache != nil {
			if err := s.cache.SetOrder(ctx, order); err != nil {
				s.logger.Warn("Failed to cache order", zap.Uint("order_id", orderID), zap.Error(err))
			}
		}
	}

	if order.UserID != actor.ID && !actor.CanManage(order.BranchID) {
		// Hide other users' orders entirely.
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor *models.User, status models.OrderStatus) ([]models.Order, error) {
	filter, err := scopeFor(actor, status)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.Orders().List(ctx, filter)
	if err != nil {
		return nil, translate(err)
	}
	return orders, nil
}

func (s *orderService) ManagerOrders(ctx context.Context, actor *models.User, status models.OrderStatus) ([]models.Order, error) {
	if !actor.IsStaff && !actor.IsSuperuser {
		return nil, ErrPermissionDenied
	}

	orders, err := s.ListOrders(ctx, actor, status)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(orders, func(i, j int) bool {
		pi, pj := orders[i].Status.Priority(), orders[j].Status.Priority()
		if pi != pj {
			return pi < pj
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

// scopeFor limits listings: superusers see everything, branch staff see
// their branch and everybody else sees their own orders.
func scopeFor(actor *models.User, status models.OrderStatus) (repository.OrderFilter, error) {
	if status != "" && !status.Valid() {
		return repository.OrderFilter{}, ErrInvalidStatus
	}

	filter := repository.OrderFilter{Status: status}
	switch {
	case actor.IsSuperuser:
	case actor.IsStaff && actor.BranchID != nil:
		filter.BranchID = actor.BranchID
	default:
		id := actor.ID
		filter.UserID = &id
	}
	return filter, nil
}

func (s *orderService) cached(ctx context.Context, orderID uint) *models.Order {
	if s.cache == nil {
		return nil
	}
	order, err := s.cache.GetOrder(ctx, orderID)
	if err != nil {
		return nil
	}
	return order
}

func (s *orderService) uncache(ctx context.Context, orderID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteOrder(ctx, orderID); err != nil {
		s.logger.Warn("Failed to invalidate cached order", zap.Uint("order_id", orderID), zap.Error(err))
	}
}

func (s *orderService) reload(ctx context.Context, orderID uint) *models.Order {
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error("Failed to reload committed order", zap.Uint("order_id", orderID), zap.Error(err))
		return nil
	}
	return order
}

// emit publishes after commit. A failed publish is logged; the order stays committed.
func (s *orderService) emit(ctx context.Context, event events.OrderEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("event_type", string(event.Type)),
			zap.Uint("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

func paymentOrDefault(method models.PaymentMethod) (models.PaymentMethod, error) {
	if method == "" {
		return models.PaymentCOD, nil
	}
	if !method.Valid() {
		return "", ErrInvalidPaymentMethod
	}
	return method, nil
}
