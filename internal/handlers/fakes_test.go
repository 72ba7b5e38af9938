package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"pharmacy_backend/internal/events"
	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeOrderService struct {
	create  func(user *models.User, input services.CreateOrderInput) (*models.Order, error)
	quick   func(user *models.User, input services.QuickOrderInput) (*models.Order, error)
	cancel  func(actor *models.User, id uint) (*models.Order, error)
	update  func(actor *models.User, id uint, status models.OrderStatus) (*models.Order, error)
	get     func(actor *models.User, id uint) (*models.Order, error)
	list    func(actor *models.User, status models.OrderStatus) ([]models.Order, error)
	manager func(actor *models.User, status models.OrderStatus) ([]models.Order, error)
}

func (f *fakeOrderService) CreateOrder(_ context.Context, user *models.User, input services.CreateOrderInput) (*models.Order, error) {
	return f.create(user, input)
}

func (f *fakeOrderService) QuickOrder(_ context.Context, user *models.User, input services.QuickOrderInput) (*models.Order, error) {
	return f.quick(user, input)
}

func (f *fakeOrderService) CancelOrder(_ context.Context, actor *models.User, id uint) (*models.Order, error) {
	return f.cancel(actor, id)
}

func (f *fakeOrderService) UpdateStatus(_ context.Context, actor *models.User, id uint, status models.OrderStatus) (*models.Order, error) {
	return f.update(actor, id, status)
}

func (f *fakeOrderService) GetOrder(_ context.Context, actor *models.User, id uint) (*models.Order, error) {
	return f.get(actor, id)
}

func (f *fakeOrderService) ListOrders(_ context.Context, actor *models.User, status models.OrderStatus) ([]models.Order, error) {
	return f.list(actor, status)
}

func (f *fakeOrderService) ManagerOrders(_ context.Context, actor *models.User, status models.OrderStatus) ([]models.Order, error) {
	return f.manager(actor, status)
}

type fakeCatalog struct {
	products []models.Product
	charge   decimal.Decimal
}

func (f *fakeCatalog) ListProducts(context.Context) ([]models.Product, error) {
	return f.products, nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id uint) (*models.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, services.ErrProductNotFound
}

func (f *fakeCatalog) DeliveryCharge(context.Context) (decimal.Decimal, error) {
	return f.charge, nil
}

func (f *fakeCatalog) Publish(context.Context, events.OrderEvent) error {
	return nil
}

type fakeCart struct {
	lines []services.OrderLine
}

func (f *fakeCart) Validate(_ context.Context, lines []services.OrderLine) (*services.CartValidation, error) {
	f.lines = lines
	return &services.CartValidation{Valid: true, Errors: []string{}}, nil
}

type fakeNotifications struct {
	items  []models.Notification
	marked []uint
}

func (f *fakeNotifications) Publish(context.Context, events.OrderEvent) error {
	return nil
}

func (f *fakeNotifications) List(_ context.Context, userID uint) ([]models.Notification, int64, error) {
	var out []models.Notification
	var unread int64
	for _, n := range f.items {
		if n.UserID == userID {
			out = append(out, n)
			if !n.IsRead {
				unread++
			}
		}
	}
	return out, unread, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, userID, id uint) error {
	for _, n := range f.items {
		if n.ID == id && n.UserID == userID {
			f.marked = append(f.marked, id)
			return nil
		}
	}
	return services.ErrNotificationNotFound
}

// fakeUsers backs the auth middleware, the WhatsApp sender lookup and the
// saved addresses.
type fakeUsers struct {
	byID      map[uint]*models.User
	addresses map[uint][]models.Address
}

func (f *fakeUsers) CreateUser(context.Context, *models.User, string) error {
	return nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, services.ErrUserNotFound
}

func (f *fakeUsers) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, services.ErrUserNotFound
}

func (f *fakeUsers) GetUserByMobile(_ context.Context, mobile string) (*models.User, error) {
	mobile = strings.TrimPrefix(mobile, "+")
	if strings.HasPrefix(mobile, "92") {
		mobile = "0" + mobile[2:]
	}
	for _, u := range f.byID {
		if u.Mobile == mobile {
			return u, nil
		}
	}
	return nil, services.ErrUserNotFound
}

func (f *fakeUsers) AddAddress(_ context.Context, userID uint, address string) (*models.Address, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, services.ErrMissingContactInfo
	}
	saved := models.Address{ID: uint(len(f.addresses[userID]) + 1), UserID: userID, Address: address}
	f.addresses[userID] = append([]models.Address{saved}, f.addresses[userID]...)
	return &saved, nil
}

func (f *fakeUsers) ListAddresses(_ context.Context, userID uint) ([]models.Address, error) {
	return f.addresses[userID], nil
}

// defaultAddress mirrors the quick order fallback to the newest address.
func (f *fakeUsers) defaultAddress(userID uint) string {
	if list := f.addresses[userID]; len(list) > 0 {
		return list[0].Address
	}
	return ""
}

type fakePrescriptions struct {
	uploaded []services.UploadPrescriptionInput
	upload   func(user *models.User, input services.UploadPrescriptionInput) (*models.Prescription, error)
	get      func(actor *models.User, id uint) (*models.Prescription, error)
	review   func(actor *models.User, id uint, status models.PrescriptionStatus, feedback string) (*models.Prescription, error)
}

func (f *fakePrescriptions) Upload(_ context.Context, user *models.User, input services.UploadPrescriptionInput) (*models.Prescription, error) {
	f.uploaded = append(f.uploaded, input)
	if f.upload != nil {
		return f.upload(user, input)
	}
	return &models.Prescription{ID: 1, UserID: user.ID, Image: input.Image, Status: models.PrescriptionPending}, nil
}

func (f *fakePrescriptions) List(_ context.Context, actor *models.User) ([]models.Prescription, error) {
	return []models.Prescription{{ID: 1, UserID: actor.ID, Status: models.PrescriptionPending}}, nil
}

func (f *fakePrescriptions) Get(_ context.Context, actor *models.User, id uint) (*models.Prescription, error) {
	return f.get(actor, id)
}

func (f *fakePrescriptions) Review(_ context.Context, actor *models.User, id uint, status models.PrescriptionStatus, feedback string) (*models.Prescription, error) {
	return f.review(actor, id, status, feedback)
}

type sentMessage struct {
	phone, text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendTextMessage(_ context.Context, phone, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{phone: phone, text: message})
	return f.err
}

func (f *fakeSender) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

var (
	customer = &models.User{ID: 1, Email: "ali@example.com", Mobile: "03001234567", IsActive: true}
	manager  = &models.User{ID: 2, Email: "staff@example.com", Mobile: "03111111111", IsActive: true, IsStaff: true, BranchID: uintPtr(1)}
	inactive = &models.User{ID: 3, Email: "gone@example.com", Mobile: "03222222222"}
)

func uintPtr(v uint) *uint { return &v }

const testWebhookToken = "gateway-secret"

type testServer struct {
	router        *gin.Engine
	orders        *fakeOrderService
	catalog       *fakeCatalog
	cart          *fakeCart
	notifications *fakeNotifications
	prescriptions *fakePrescriptions
	users         *fakeUsers
	sender        *fakeSender
	checks        map[string]HealthCheck
	mediaRoot     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	logger := zaptest.NewLogger(t)
	s := &testServer{
		orders: &fakeOrderService{},
		catalog: &fakeCatalog{
			products: []models.Product{
				{ID: 1, Name: "Panadol", Price: decimal.RequireFromString("10.00"), Stock: 100, IsActive: true},
			},
			charge: decimal.RequireFromString("150.00"),
		},
		cart:          &fakeCart{},
		notifications: &fakeNotifications{},
		prescriptions: &fakePrescriptions{},
		users: &fakeUsers{
			byID:      map[uint]*models.User{1: customer, 2: manager, 3: inactive},
			addresses: map[uint][]models.Address{},
		},
		sender:    &fakeSender{},
		checks:    map[string]HealthCheck{},
		mediaRoot: t.TempDir(),
	}

	s.router = gin.New()
	Router{
		API:           NewAPIHandler(s.catalog, s.notifications, s.users, s.checks, logger),
		Orders:        NewOrderHandler(s.orders, logger),
		Cart:          NewCartHandler(s.cart, logger),
		Prescriptions: NewPrescriptionHandler(s.prescriptions, s.mediaRoot, logger),
		WhatsApp:      NewWhatsAppHandler(testWebhookToken, s.sender, s.users, s.orders, s.catalog, logger),
	}.Register(s.router, s.users, logger)

	return s
}

func (s *testServer) do(method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// hook posts a gateway payload with the shared token.
func (s *testServer) hook(body string) *httptest.ResponseRecorder {
	return s.hookWithToken(body, testWebhookToken)
}

func (s *testServer) hookWithToken(body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/whatsapp/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(WebhookTokenHeader, token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	require.Equal(t, code, w.Code, w.Body.String())
}
