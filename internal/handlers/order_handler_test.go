package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createBody = `{
	"shipping_address": "House 1, Street 2, Lahore",
	"contact_number": "03001234567",
	"items": [{"product_id": 1, "quantity": 2}, {"product_id": 3, "quantity": 1}]
}`

func TestCreateOrder_Created(t *testing.T) {
	s := newTestServer(t)
	var got services.CreateOrderInput
	s.orders.create = func(user *models.User, input services.CreateOrderInput) (*models.Order, error) {
		require.Equal(t, customer.ID, user.ID)
		got = input
		return &models.Order{ID: 7, UserID: user.ID, Status: models.OrderPending, TotalAmount: decimal.RequireFromString("45.50")}, nil
	}

	w := s.do(http.MethodPost, "/api/orders", "1", createBody)

	expectStatus(t, w, http.StatusCreated)
	assert.Equal(t, []services.OrderLine{{ProductID: 1, Quantity: 2}, {ProductID: 3, Quantity: 1}}, got.Items)
	assert.Equal(t, "03001234567", got.ContactNumber)
	assert.Empty(t, got.PaymentMethod)

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, uint(7), order.ID)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("45.50")))
}

func TestCreateOrder_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	expectStatus(t, s.do(http.MethodPost, "/api/orders", "", createBody), http.StatusUnauthorized)
	expectStatus(t, s.do(http.MethodPost, "/api/orders", "abc", createBody), http.StatusUnauthorized)
	expectStatus(t, s.do(http.MethodPost, "/api/orders", "99", createBody), http.StatusUnauthorized)
	expectStatus(t, s.do(http.MethodPost, "/api/orders", "3", createBody), http.StatusUnauthorized)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	s := newTestServer(t)
	s.orders.create = func(*models.User, services.CreateOrderInput) (*models.Order, error) {
		return nil, &services.InsufficientStockError{ProductID: 1, ProductName: "Panadol", Requested: 101, Available: 100}
	}

	w := s.do(http.MethodPost, "/api/orders", "1", createBody)

	expectStatus(t, w, http.StatusBadRequest)
	var body struct {
		Error     string `json:"error"`
		ProductID uint   `json:"product_id"`
		Available int    `json:"available"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Panadol: Only 100 left.", body.Error)
	assert.Equal(t, uint(1), body.ProductID)
	assert.Equal(t, 100, body.Available)
}

func TestCreateOrder_RejectsBadPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"items": [`},
		{"no items", `{"shipping_address": "x", "contact_number": "03001234567", "items": []}`},
		{"zero quantity", `{"shipping_address": "x", "contact_number": "03001234567", "items": [{"product_id": 1, "quantity": 0}]}`},
		{"bad contact", `{"shipping_address": "x", "contact_number": "0300123", "items": [{"product_id": 1, "quantity": 1}]}`},
		{"missing address", `{"contact_number": "03001234567", "items": [{"product_id": 1, "quantity": 1}]}`},
		{"unknown payment", `{"shipping_address": "x", "contact_number": "03001234567", "payment_method": "CARD", "items": [{"product_id": 1, "quantity": 1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.orders.create = func(*models.User, services.CreateOrderInput) (*models.Order, error) {
				t.Fatal("service must not be called")
				return nil, nil
			}

			expectStatus(t, s.do(http.MethodPost, "/api/orders", "1", tt.body), http.StatusBadRequest)
		})
	}
}

func TestOrderErrors_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{services.ErrOrderNotFound, http.StatusNotFound},
		{services.ErrPermissionDenied, http.StatusForbidden},
		{fmt.Errorf("%w: serialization failure", services.ErrTransactionConflict), http.StatusConflict},
		{&services.StateTransitionError{From: models.OrderShipped, To: models.OrderCancelled}, http.StatusBadRequest},
		{services.ErrInvalidProduct, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			s := newTestServer(t)
			s.orders.cancel = func(*models.User, uint) (*models.Order, error) {
				return nil, tt.err
			}

			w := s.do(http.MethodPost, "/api/orders/5/cancel", "1", "")

			expectStatus(t, w, tt.code)
			if tt.code == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection reset")
			}
		})
	}
}

func TestQuickOrder_DefaultsQuantity(t *testing.T) {
	s := newTestServer(t)
	var got services.QuickOrderInput
	s.orders.quick = func(_ *models.User, input services.QuickOrderInput) (*models.Order, error) {
		got = input
		return &models.Order{ID: 9, OrderType: models.OrderTypeQuick}, nil
	}

	w := s.do(http.MethodPost, "/api/orders/quick-order", "1", `{"product_id": 4}`)

	expectStatus(t, w, http.StatusCreated)
	assert.Equal(t, uint(4), got.ProductID)
	assert.Equal(t, 1, got.Quantity)
	assert.Empty(t, got.ShippingAddress)
}

func TestQuickOrder_MissingContactInfo(t *testing.T) {
	s := newTestServer(t)
	s.orders.quick = func(*models.User, services.QuickOrderInput) (*models.Order, error) {
		return nil, services.ErrMissingContactInfo
	}

	expectStatus(t, s.do(http.MethodPost, "/api/orders/quick-order", "1", `{"product_id": 4, "quantity": 2}`), http.StatusBadRequest)
}

func TestGetOrder(t *testing.T) {
	s := newTestServer(t)
	s.orders.get = func(actor *models.User, id uint) (*models.Order, error) {
		if id != 5 {
			return nil, services.ErrOrderNotFound
		}
		return &models.Order{ID: 5, UserID: actor.ID}, nil
	}

	expectStatus(t, s.do(http.MethodGet, "/api/orders/5", "1", ""), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, "/api/orders/6", "1", ""), http.StatusNotFound)
	expectStatus(t, s.do(http.MethodGet, "/api/orders/zero", "1", ""), http.StatusBadRequest)
}

func TestListOrders_PassesStatusFilter(t *testing.T) {
	s := newTestServer(t)
	var gotStatus models.OrderStatus
	s.orders.list = func(_ *models.User, status models.OrderStatus) ([]models.Order, error) {
		gotStatus = status
		return []models.Order{{ID: 1}, {ID: 2}}, nil
	}

	w := s.do(http.MethodGet, "/api/orders?status=Pending", "1", "")

	expectStatus(t, w, http.StatusOK)
	assert.Equal(t, models.OrderPending, gotStatus)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestManagerOrders(t *testing.T) {
	s := newTestServer(t)
	s.orders.manager = func(actor *models.User, _ models.OrderStatus) ([]models.Order, error) {
		if !actor.IsStaff {
			return nil, services.ErrPermissionDenied
		}
		return []models.Order{}, nil
	}

	expectStatus(t, s.do(http.MethodGet, "/api/manager/orders", "2", ""), http.StatusOK)
	expectStatus(t, s.do(http.MethodGet, "/api/manager/orders", "1", ""), http.StatusForbidden)
}

func TestUpdateStatus(t *testing.T) {
	s := newTestServer(t)
	s.orders.update = func(_ *models.User, id uint, status models.OrderStatus) (*models.Order, error) {
		return &models.Order{ID: id, Status: status}, nil
	}

	w := s.do(http.MethodPatch, "/api/orders/5/status", "2", `{"status": "Shipped"}`)
	expectStatus(t, w, http.StatusOK)
	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, models.OrderShipped, order.Status)

	expectStatus(t, s.do(http.MethodPatch, "/api/orders/5/status", "2", `{"status": "Lost"}`), http.StatusBadRequest)
}
