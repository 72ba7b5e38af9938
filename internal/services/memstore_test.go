package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"pharmacy_backend/internal/events"
	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/repository"

	"github.com/shopspring/decimal"
)

// memState is one consistent snapshot of every table.
type memState struct {
	products      map[uint]models.Product
	orders        map[uint]models.Order
	items         []models.OrderItem
	users         map[uint]models.User
	addresses     []models.Address
	branches      map[uint]models.Branch
	notifications []models.Notification
	prescriptions map[uint]models.Prescription
	charge        *decimal.Decimal
	nextID        uint
	clock         time.Time
}

func (st *memState) clone() *memState {
	c := *st
	c.products = make(map[uint]models.Product, len(st.products))
	for k, v := range st.products {
		c.products[k] = v
	}
	c.orders = make(map[uint]models.Order, len(st.orders))
	for k, v := range st.orders {
		c.orders[k] = v
	}
	c.users = make(map[uint]models.User, len(st.users))
	for k, v := range st.users {
		c.users[k] = v
	}
	c.branches = make(map[uint]models.Branch, len(st.branches))
	for k, v := range st.branches {
		c.branches[k] = v
	}
	c.prescriptions = make(map[uint]models.Prescription, len(st.prescriptions))
	for k, v := range st.prescriptions {
		c.prescriptions[k] = v
	}
	c.items = append([]models.OrderItem(nil), st.items...)
	c.addresses = append([]models.Address(nil), st.addresses...)
	c.notifications = append([]models.Notification(nil), st.notifications...)
	return &c
}

func (st *memState) id() uint {
	st.nextID++
	return st.nextID
}

func (st *memState) tick() time.Time {
	st.clock = st.clock.Add(time.Second)
	return st.clock
}

// memStore implements repository.Store in memory. Transactions are fully
// serialized and work on a copy that replaces the live state on success.
type memStore struct {
	root *memStore
	mu   *sync.Mutex
	st   *memState
	inTx bool

	// commitErr, when set, fails every transaction at commit time.
	commitErr error
}

func newMemStore() *memStore {
	s := &memStore{
		mu: &sync.Mutex{},
		st: &memState{
			products:      map[uint]models.Product{},
			orders:        map[uint]models.Order{},
			users:         map[uint]models.User{},
			branches:      map[uint]models.Branch{},
			prescriptions: map[uint]models.Prescription{},
			clock:         time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		},
	}
	s.root = s
	return s
}

func (s *memStore) with(fn func(st *memState) error) error {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.st)
}

func (s *memStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memStore{root: s.root, mu: s.mu, st: s.st.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	if s.root.commitErr != nil {
		return s.root.commitErr
	}
	s.st = tx.st
	return nil
}

func (s *memStore) Products() repository.ProductRepository { return memProducts{s} }
func (s *memStore) Stock() repository.StockLedger { return memStock{s} }
func (s *memStore) Orders() repository.OrderRepository { return memOrders{s} }
func (s *memStore) OrderItems() repository.OrderItemRepository { return memOrderItems{s} }
func (s *memStore) Users() repository.UserRepository { return memUsers{s} }
func (s *memStore) Branches() repository.BranchRepository { return memBranches{s} }
func (s *memStore) Notifications() repository.NotificationRepository { return memNotifications{s} }
func (s *memStore) DeliveryCharges() repository.DeliveryChargeRepository { return memCharges{s} }
func (s *memStore) Prescriptions() repository.PrescriptionRepository { return memPrescriptions{s} }

func (s *memStore) stock(id uint) int {
	var stock int
	s.with(func(st *memState) error {
		stock = st.products[id].Stock
		return nil
	})
	return stock
}

func (s *memStore) setPrice(id uint, price decimal.Decimal) {
	s.with(func(st *memState) error {
		p := st.products[id]
		p.Price = price
		st.products[id] = p
		return nil
	})
}

func (s *memStore) orderCount() int {
	var n int
	s.with(func(st *memState) error {
		n = len(st.orders)
		return nil
	})
	return n
}

type memProducts struct{ s *memStore }

func (r memProducts) Create(ctx context.Context, product *models.Product) error {
	return r.s.with(func(st *memState) error {
		product.ID = st.id()
		st.products[product.ID] = *product
		return nil
	})
}

func (r memProducts) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var out *models.Product
	err := r.s.with(func(st *memState) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrProductNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memProducts) GetByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	var out []models.Product
	err := r.s.with(func(st *memState) error {
		for _, id := range ids {
			if p, ok := st.products[id]; ok {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r memProducts) LockByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	return r.GetByIDs(ctx, ids)
}

func (r memProducts) List(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	var out []models.Product
	err := r.s.with(func(st *memState) error {
		for _, p := range st.products {
			if !activeOnly || p.IsActive {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

type memStock struct{ s *memStore }

func (l memStock) Reserve(ctx context.Context, productID uint, quantity int) error {
	if quantity <= 0 {
		return repository.ErrInvalidQuantity
	}
	return l.s.with(func(st *memState) error {
		p, ok := st.products[productID]
		if !ok {
			return repository.ErrProductNotFound
		}
		if p.Stock < quantity {
			return &repository.StockShortfallError{ProductID: productID, Requested: quantity, Available: p.Stock}
		}
		p.Stock -= quantity
		st.products[productID] = p
		return nil
	})
}

func (l memStock) Release(ctx context.Context, productID uint, quantity int) error {
	if quantity <= 0 {
		return repository.ErrInvalidQuantity
	}
	return l.s.with(func(st *memState) error {
		p, ok := st.products[productID]
		if !ok {
			return repository.ErrProductNotFound
		}
		p.Stock += quantity
		st.products[productID] = p
		return nil
	})
}

func (l memStock) Available(ctx context.Context, productID uint) (int, error) {
	var stock int
	err := l.s.with(func(st *memState) error {
		p, ok := st.products[productID]
		if !ok {
			return repository.ErrProductNotFound
		}
		stock = p.Stock
		return nil
	})
	return stock, err
}

type memOrders struct{ s *memStore }

func (st *memState) loadOrder(id uint) (*models.Order, error) {
	o, ok := st.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.Items = nil
	for _, item := range st.items {
		if item.OrderID == id {
			if p, ok := st.products[item.ProductID]; ok {
				item.Product = &p
			}
			o.Items = append(o.Items, item)
		}
	}
	if o.BranchID != nil {
		if b, ok := st.branches[*o.BranchID]; ok {
			o.Branch = &b
		}
	}
	return &o, nil
}

func (r memOrders) Create(ctx context.Context, order *models.Order) error {
	return r.s.with(func(st *memState) error {
		order.ID = st.id()
		order.CreatedAt = st.tick()
		order.UpdatedAt = order.CreatedAt
		header := *order
		header.Items = nil
		st.orders[order.ID] = header
		return nil
	})
}

func (r memOrders) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var out *models.Order
	err := r.s.with(func(st *memState) (err error) {
		out, err = st.loadOrder(id)
		return err
	})
	return out, err
}

func (r memOrders) LockByID(ctx context.Context, id uint) (*models.Order, error) {
	var out *models.Order
	err := r.s.with(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return repository.ErrOrderNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r memOrders) List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	var out []models.Order
	err := r.s.with(func(st *memState) error {
		for id, o := range st.orders {
			if filter.UserID != nil && o.UserID != *filter.UserID {
				continue
			}
			if filter.BranchID != nil && (o.BranchID == nil || *o.BranchID != *filter.BranchID) {
				continue
			}
			if filter.Status != "" && o.Status != filter.Status {
				continue
			}
			loaded, _ := st.loadOrder(id)
			out = append(out, *loaded)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r memOrders) UpdateTotal(ctx context.Context, id uint, total decimal.Decimal) error {
	return r.s.with(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok {
			return repository.ErrOrderNotFound
		}
		o.TotalAmount = total
		o.UpdatedAt = st.tick()
		st.orders[id] = o
		return nil
	})
}

func (r memOrders) TransitionStatus(ctx context.Context, id uint, from, to models.OrderStatus) error {
	return r.s.with(func(st *memState) error {
		o, ok := st.orders[id]
		if !ok || o.Status != from {
			return repository.ErrStatusChanged
		}
		o.Status = to
		o.UpdatedAt = st.tick()
		st.orders[id] = o
		return nil
	})
}

type memOrderItems struct{ s *memStore }

func (r memOrderItems) CreateBatch(ctx context.Context, items []models.OrderItem) error {
	return r.s.with(func(st *memState) error {
		for i := range items {
			items[i].ID = st.id()
			stored := items[i]
			stored.Product = nil
			st.items = append(st.items, stored)
		}
		return nil
	})
}

func (r memOrderItems) GetByOrderID(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var out []models.OrderItem
	err := r.s.with(func(st *memState) error {
		for _, item := range st.items {
			if item.OrderID == orderID {
				out = append(out, item)
			}
		}
		return nil
	})
	return out, err
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, user *models.User) error {
	return r.s.with(func(st *memState) error {
		user.ID = st.id()
		st.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var out *models.User
	err := r.s.with(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.s.with(func(st *memState) error {
		for _, u := range st.users {
			if u.Email == email {
				out = &u
				return nil
			}
		}
		return repository.ErrUserNotFound
	})
	return out, err
}

func (r memUsers) GetByMobile(ctx context.Context, mobile string) (*models.User, error) {
	var out *models.User
	err := r.s.with(func(st *memState) error {
		for _, u := range st.users {
			if u.Mobile == mobile {
				out = &u
				return nil
			}
		}
		return repository.ErrUserNotFound
	})
	return out, err
}

func (r memUsers) AddAddress(ctx context.Context, address *models.Address) error {
	return r.s.with(func(st *memState) error {
		address.ID = st.id()
		address.CreatedAt = st.tick()
		st.addresses = append(st.addresses, *address)
		return nil
	})
}

func (r memUsers) DefaultAddress(ctx context.Context, userID uint) (string, error) {
	var out string
	err := r.s.with(func(st *memState) error {
		for _, a := range st.addresses {
			if a.UserID == userID {
				out = a.Address
			}
		}
		return nil
	})
	return out, err
}

func (r memUsers) ListAddresses(ctx context.Context, userID uint) ([]models.Address, error) {
	var out []models.Address
	err := r.s.with(func(st *memState) error {
		for i := len(st.addresses) - 1; i >= 0; i-- {
			if st.addresses[i].UserID == userID {
				out = append(out, st.addresses[i])
			}
		}
		return nil
	})
	return out, err
}

type memBranches struct{ s *memStore }

func (r memBranches) Create(ctx context.Context, branch *models.Branch) error {
	return r.s.with(func(st *memState) error {
		branch.ID = st.id()
		st.branches[branch.ID] = *branch
		return nil
	})
}

func (r memBranches) GetByID(ctx context.Context, id uint) (*models.Branch, error) {
	var out *models.Branch
	err := r.s.with(func(st *memState) error {
		b, ok := st.branches[id]
		if !ok {
			return repository.ErrBranchNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

type memNotifications struct{ s *memStore }

func (r memNotifications) Create(ctx context.Context, n *models.Notification) error {
	return r.s.with(func(st *memState) error {
		n.ID = st.id()
		n.CreatedAt = st.tick()
		st.notifications = append(st.notifications, *n)
		return nil
	})
}

func (r memNotifications) ListByUser(ctx context.Context, userID uint) ([]models.Notification, error) {
	var out []models.Notification
	err := r.s.with(func(st *memState) error {
		for i := len(st.notifications) - 1; i >= 0; i-- {
			if st.notifications[i].UserID == userID {
				out = append(out, st.notifications[i])
			}
		}
		return nil
	})
	return out, err
}

func (r memNotifications) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.s.with(func(st *memState) error {
		for _, notification := range st.notifications {
			if notification.UserID == userID && !notification.IsRead {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memNotifications) MarkRead(ctx context.Context, id, userID uint) error {
	return r.s.with(func(st *memState) error {
		for i := range st.notifications {
			if st.notifications[i].ID == id && st.notifications[i].UserID == userID {
				st.notifications[i].IsRead = true
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

type memCharges struct{ s *memStore }

func (r memCharges) Current(ctx context.Context) (decimal.Decimal, error) {
	amount := decimal.Zero
	err := r.s.with(func(st *memState) error {
		if st.charge != nil {
			amount = *st.charge
		}
		return nil
	})
	return amount, err
}

func (r memCharges) Set(ctx context.Context, amount decimal.Decimal) error {
	return r.s.with(func(st *memState) error {
		st.charge = &amount
		return nil
	})
}

// recordingPublisher keeps every event it is handed.
type memPrescriptions struct{ s *memStore }

func (r memPrescriptions) Create(ctx context.Context, p *models.Prescription) error {
	return r.s.with(func(st *memState) error {
		p.ID = st.id()
		p.CreatedAt = st.tick()
		p.UpdatedAt = p.CreatedAt
		st.prescriptions[p.ID] = *p
		return nil
	})
}

func (r memPrescriptions) GetByID(ctx context.Context, id uint) (*models.Prescription, error) {
	var out *models.Prescription
	err := r.s.with(func(st *memState) error {
		p, ok := st.prescriptions[id]
		if !ok {
			return repository.ErrPrescriptionNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memPrescriptions) List(ctx context.Context, userID *uint) ([]models.Prescription, error) {
	var out []models.Prescription
	err := r.s.with(func(st *memState) error {
		for _, p := range st.prescriptions {
			if userID == nil || p.UserID == *userID {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r memPrescriptions) Review(ctx context.Context, id uint, status models.PrescriptionStatus, feedback string) error {
	return r.s.with(func(st *memState) error {
		p, ok := st.prescriptions[id]
		if !ok || p.Status != models.PrescriptionPending {
			return repository.ErrStatusChanged
		}
		p.Status, p.AdminFeedback = status, feedback
		p.UpdatedAt = st.tick()
		st.prescriptions[id] = p
		return nil
	})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) all() []events.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderEvent(nil), p.events...)
}
