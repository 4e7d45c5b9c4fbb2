package rest

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mkravets/vigil/internal/vigil/catalog"
	"github.com/mkravets/vigil/internal/vigil/checkout"
	"github.com/mkravets/vigil/internal/vigil/ledger"
	"github.com/mkravets/vigil/internal/vigil/prefs"
	"github.com/mkravets/vigil/internal/vigil/view"
	"github.com/mkravets/vigil/pkg/bus"
	"github.com/mkravets/vigil/pkg/messaging"
	"github.com/mkravets/vigil/pkg/messaging/events"
	"github.com/mkravets/vigil/pkg/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserEmail = "alice@example.com"

type testEnv struct {
	router   *chi.Mux
	bus      *bus.Bus
	ledger   *ledger.Ledger
	catalog  *catalog.Store
	prefs    prefs.Store
	selector *view.Selector
}

func newTestEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.New(logger)
	led := ledger.New(b, logger)
	cat := catalog.NewStore()
	cat.Create("Anti-Sleep Alarm", 2999, 10) // id 1
	cat.Create("Dash Camera HD", 14999, 2)   // id 2
	store := prefs.NewMemory()
	selector := view.NewSelector(b, logger)

	handler := NewHandler(checkout.NewService(cat, led, logger), led, store, selector, cat, b, logger)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	return &testEnv{router: router, bus: b, ledger: led, catalog: cat, prefs: store, selector: selector}
}

func (e *testEnv) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(web.XUserEmail, testUserEmail)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func Test_Checkout_Created(t *testing.T) {
	// given
	env := newTestEnv()
	body := `{"payment_method":"credit_card","shipping_address":"1 Main St","items":[{"product_id":"1","quantity":2}]}`

	// when
	rec := env.request(t, http.MethodPost, "/api/v1/checkout", body)

	// then
	require.Equal(t, http.StatusCreated, rec.Code)
	var receipt checkout.ReceiptDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.NotEmpty(t, receipt.TransactionID)
	assert.Equal(t, int64(5998), receipt.Total)

	// the purchase is on the ledger under the caller's identity
	records := env.ledger.Purchases()
	require.Len(t, records, 1)
	assert.Equal(t, testUserEmail, records[0].UserEmail)
}

func Test_Checkout_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{
			name:           "Error - unknown voucher",
			body:           `{"payment_method":"credit_card","shipping_address":"1 Main St","voucher":"BOGUS","items":[{"product_id":"1","quantity":1}]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Error - product not found",
			body:           `{"payment_method":"credit_card","shipping_address":"1 Main St","items":[{"product_id":"99","quantity":1}]}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Error - insufficient stock",
			body:           `{"payment_method":"credit_card","shipping_address":"1 Main St","items":[{"product_id":"2","quantity":3}]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Error - malformed body",
			body:           `{not json`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			env := newTestEnv()

			// when
			rec := env.request(t, http.MethodPost, "/api/v1/checkout", tc.body)

			// then
			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Empty(t, env.ledger.Purchases())
		})
	}
}

func Test_Checkout_ValidationErrors(t *testing.T) {
	// given: no payment method, empty items
	env := newTestEnv()
	body := `{"shipping_address":"1 Main St","items":[]}`

	// when
	rec := env.request(t, http.MethodPost, "/api/v1/checkout", body)

	// then
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var response map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Contains(t, response["validation_errors"], "PaymentMethod")
	assert.Contains(t, response["validation_errors"], "Items")
}

func Test_MissingAuthHeader_Unauthorized(t *testing.T) {
	// given
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/purchases", nil)
	rec := httptest.NewRecorder()

	// when
	env.router.ServeHTTP(rec, req)

	// then
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_ListPurchases_FiltersByCaller(t *testing.T) {
	// given: one record for the caller, one for somebody else
	env := newTestEnv()
	require.NoError(t, env.ledger.Add(t.Context(), ledger.Record{
		UserEmail: testUserEmail, ProductName: "Smart Helmet", Quantity: 1, UnitPrice: 24999, Total: 24999,
	}))
	require.NoError(t, env.ledger.Add(t.Context(), ledger.Record{
		UserEmail: "bob@example.com", ProductName: "Dash Camera HD", Quantity: 1, UnitPrice: 14999, Total: 14999,
	}))

	// when
	rec := env.request(t, http.MethodGet, "/api/v1/purchases", "")

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	var records []ledger.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Smart Helmet", records[0].ProductName)
}

func Test_ListProducts(t *testing.T) {
	// given
	env := newTestEnv()

	// when
	rec := env.request(t, http.MethodGet, "/api/v1/products", "")

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	var products []productDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "Anti-Sleep Alarm", products[0].Name)
}

func Test_Avatar_Lifecycle(t *testing.T) {
	// given
	env := newTestEnv()
	var updates []events.AvatarUpdated
	env.bus.Subscribe(messaging.TopicAvatarUpdated, func(payload any) {
		updates = append(updates, payload.(events.AvatarUpdated))
	})

	// when / then: nothing stored yet
	rec := env.request(t, http.MethodGet, "/api/v1/preferences/avatar", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// when: store an avatar
	rec = env.request(t, http.MethodPut, "/api/v1/preferences/avatar", `{"avatar_url":"https://cdn.example.com/a.png"}`)

	// then
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.request(t, http.MethodGet, "/api/v1/preferences/avatar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body avatarDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "https://cdn.example.com/a.png", body.AvatarURL)

	// when: delete it again
	rec = env.request(t, http.MethodDelete, "/api/v1/preferences/avatar", "")

	// then
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.request(t, http.MethodGet, "/api/v1/preferences/avatar", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// both the update and the delete were announced on the bus
	require.Len(t, updates, 2)
	assert.Equal(t, "https://cdn.example.com/a.png", updates[0].AvatarURL)
	assert.Empty(t, updates[1].AvatarURL)
}

func Test_Avatar_EmptyURLRejected(t *testing.T) {
	// given
	env := newTestEnv()

	// when
	rec := env.request(t, http.MethodPut, "/api/v1/preferences/avatar", `{"avatar_url":""}`)

	// then
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_View_Navigation(t *testing.T) {
	// given
	env := newTestEnv()

	// when / then: starts on the dashboard
	rec := env.request(t, http.MethodGet, "/api/v1/view", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var current viewDto
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, "dashboard", current.View)

	// when: navigate to the shop
	rec = env.request(t, http.MethodPost, "/api/v1/view/shop", "")

	// then: the response already reflects the transition
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, "shop", current.View)
	assert.Equal(t, view.ViewShop, env.selector.Current())
}

func Test_View_UnknownName(t *testing.T) {
	// given
	env := newTestEnv()

	// when
	rec := env.request(t, http.MethodPost, "/api/v1/view/garage", "")

	// then
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, view.ViewDashboard, env.selector.Current())
}

func Test_HealthCheck(t *testing.T) {
	// given
	env := newTestEnv()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	// when: no auth header required
	env.router.ServeHTTP(rec, req)

	// then
	assert.Equal(t, http.StatusOK, rec.Code)
}
