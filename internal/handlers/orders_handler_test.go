package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dinh7112004/order-service/internal/catalog"
	"github.com/dinh7112004/order-service/internal/dynamotest"
	"github.com/dinh7112004/order-service/internal/orders"
)

type apiHarness struct {
	router *gin.Engine
	mock   *dynamotest.InMemory
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock := dynamotest.NewInMemory(map[string]string{
		"orders":        "order_id",
		"products":      "product_id",
		"notifications": "notification_id",
		"carts":         "user_id",
		"idempotency":   "idempotency_key",
	})
	r := gin.New()
	RegisterOrdersRoutes(r, HandlerConfig{
		DynamoDBClient:     mock,
		OrdersTable:        "orders",
		ProductsTable:      "products",
		NotificationsTable: "notifications",
		CartsTable:         "carts",
		IdempotencyTable:   "idempotency",
		Logger:             zap.NewNop(),
	})
	return &apiHarness{router: r, mock: mock}
}

func (h *apiHarness) seedShirt(t *testing.T, qty int) {
	t.Helper()
	store := catalog.NewStore(h.mock, "products")
	err := store.Put(context.Background(), catalog.Product{
		ProductID: "p1",
		Name:      "Shirt",
		Image:     "/img/shirt.png",
		Price:     10,
		Quantity:  qty,
		Variations: []catalog.Variation{
			{Color: "red", Size: "M", Quantity: qty},
		},
		Version: 1,
	})
	require.NoError(t, err)
}

func (h *apiHarness) seedOrder(t *testing.T, id, userID string, status orders.Status) {
	t.Helper()
	store := orders.NewStore(h.mock, "orders")
	_, err := store.Create(context.Background(), orders.Order{
		OrderID: id,
		UserID:  userID,
		Items: []orders.OrderItem{
			{ProductID: "p1", Name: "Shirt", Color: "red", Size: "M", Quantity: 2, Price: 10},
		},
		Address: orders.Address{
			FullName: "A B", PhoneNumber: "0123", Province: "P", District: "D", Ward: "W", Street: "S",
		},
		ShippingFee:   2,
		TotalAmount:   22,
		PaymentMethod: orders.PaymentCash,
		Status:        status,
	})
	require.NoError(t, err)
}

func (h *apiHarness) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func asUser(id string) map[string]string {
	return map[string]string{"X-User-Id": id}
}

func asAdmin(id string) map[string]string {
	return map[string]string{"X-User-Id": id, "X-User-Role": "admin"}
}

func createBody() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"product_id": "p1", "color": "red", "size": "M", "quantity": 2, "price": 10},
		},
		"shippingAddress": map[string]any{
			"fullName": "A B", "phone": "0123", "province": "P",
			"district": "D", "ward": "W", "street": "S",
		},
		"shipping_fee": 2,
		"total_amount": 22,
	}
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateOrder_Cash(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)

	w := h.do(t, http.MethodPost, "/orders/cash", createBody(), asUser("u1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeJSON(t, w)
	assert.Equal(t, "pending", resp["status"])
	assert.Equal(t, "cash", resp["payment_method"])
	assert.Equal(t, "u1", resp["user_id"])
	assert.NotEmpty(t, resp["order_id"])
	assert.Len(t, h.mock.Items("orders"), 1)
}

func TestCreateOrder_VNPayForcesMethod(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)

	body := createBody()
	body["paymentMethod"] = "cash"
	w := h.do(t, http.MethodPost, "/orders/vnpay", body, asUser("u1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "vnpay", decodeJSON(t, w)["payment_method"])
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)

	w := h.do(t, http.MethodPost, "/orders/cash", createBody(), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateOrder_ValidationFailure(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)

	body := createBody()
	body["items"] = []map[string]any{}
	w := h.do(t, http.MethodPost, "/orders/cash", body, asUser("u1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, h.mock.Items("orders"))
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 1)

	w := h.do(t, http.MethodPost, "/orders/cash", createBody(), asUser("u1"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeJSON(t, w)
	assert.Equal(t, float64(1), resp["remaining"])
}

func TestCreateOrder_IdempotencyReplay(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)

	headers := asUser("u1")
	headers["Idempotency-Key"] = "k1"

	first := h.do(t, http.MethodPost, "/orders/cash", createBody(), headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := h.do(t, http.MethodPost, "/orders/cash", createBody(), headers)
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	// only one order was created
	assert.Len(t, h.mock.Items("orders"), 1)
}

func TestCreateOrder_IdempotencyFailedAttempt(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 1) // not enough for quantity 2

	headers := asUser("u1")
	headers["Idempotency-Key"] = "k1"

	first := h.do(t, http.MethodPost, "/orders/cash", createBody(), headers)
	require.Equal(t, http.StatusBadRequest, first.Code)

	// the same key is now burned
	second := h.do(t, http.MethodPost, "/orders/cash", createBody(), headers)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestGetOrder_OwnerAndStranger(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)
	h.seedOrder(t, "o1", "u1", orders.StatusPending)

	w := h.do(t, http.MethodGet, "/orders/o1", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON(t, w)
	assert.Equal(t, "o1", resp["order_id"])

	w = h.do(t, http.MethodGet, "/orders/o1", nil, asUser("u2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodGet, "/orders/missing", nil, asUser("u1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMine_FiltersByStatus(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)
	h.seedOrder(t, "o1", "u1", orders.StatusPending)
	h.seedOrder(t, "o2", "u1", orders.StatusConfirmed)
	h.seedOrder(t, "o3", "u2", orders.StatusPending)

	w := h.do(t, http.MethodGet, "/orders/mine", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	w = h.do(t, http.MethodGet, "/orders/mine?status=pending", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, w.Code)
	list = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "o1", list[0]["order_id"])
}

func TestUpdateStatus_AdminConfirms(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)
	h.seedOrder(t, "o1", "u1", orders.StatusPending)

	w := h.do(t, http.MethodPatch, "/orders/o1/status",
		map[string]string{"status": "confirmed"}, asAdmin("boss"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeJSON(t, w)
	order := resp["order"].(map[string]any)
	assert.Equal(t, "confirmed", order["status"])

	// stock was decremented and a notification written
	p, err := catalog.NewStore(h.mock, "products").Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Variation("red", "M").Quantity)
	assert.Len(t, h.mock.Items("notifications"), 1)
}

func TestUpdateStatus_InvalidEdge(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)
	h.seedOrder(t, "o1", "u1", orders.StatusShipping)

	w := h.do(t, http.MethodPatch, "/orders/o1/status",
		map[string]string{"status": "confirmed"}, asAdmin("boss"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeJSON(t, w)
	assert.Contains(t, resp, "valid_next")
}

func TestCancel_OwnerPending(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)
	h.seedOrder(t, "o1", "u1", orders.StatusPending)

	w := h.do(t, http.MethodPatch, "/orders/o1/cancel", nil, asUser("u1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decodeJSON(t, w)["order"].(map[string]any)
	assert.Equal(t, "cancelled", order["status"])
}

func TestCancel_OwnerAfterConfirmation(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)
	h.seedOrder(t, "o1", "u1", orders.StatusConfirmed)

	w := h.do(t, http.MethodPatch, "/orders/o1/cancel", nil, asUser("u1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListAll_AdminGate(t *testing.T) {
	h := newAPIHarness(t)
	h.seedShirt(t, 5)
	h.seedOrder(t, "o1", "u1", orders.StatusPending)

	w := h.do(t, http.MethodGet, "/orders", nil, asUser("u1"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, http.MethodGet, "/orders", nil, asAdmin("boss"))
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}
