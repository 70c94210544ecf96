package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/gleam-storefront/internal/admin"
	"github.com/xenking/gleam-storefront/internal/domain/auth"
	"github.com/xenking/gleam-storefront/internal/domain/catalog"
	"github.com/xenking/gleam-storefront/internal/domain/identity"
	"github.com/xenking/gleam-storefront/internal/session"
	"github.com/xenking/gleam-storefront/internal/store"
	"github.com/xenking/gleam-storefront/internal/store/storetest"
)

// --- Fixture ---

const (
	testToken  = "tok-ava"
	testAPIKey = "back-office-key"
	testPepper = "unit-test-pepper"
)

type fakeVerifier struct {
	tokens map[string]identity.Identity
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (*identity.Identity, error) {
	id, ok := f.tokens[token]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	return &id, nil
}

type fakeCatalog struct {
	products map[string]catalog.Product
}

func (f *fakeCatalog) List(_ context.Context) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (f *fakeCatalog) Create(_ context.Context, p *catalog.Product) error {
	f.products[p.ID] = *p
	return nil
}

func (f *fakeCatalog) Update(_ context.Context, p *catalog.Product) error {
	f.products[p.ID] = *p
	return nil
}

func (f *fakeCatalog) Delete(_ context.Context, id string) error {
	delete(f.products, id)
	return nil
}

type fakeKeys struct {
	byHash map[string]*auth.APIKeyInfo
}

func (f *fakeKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := f.byHash[hash]
	if !ok {
		return nil, store.ErrNoRow
	}
	return info, nil
}

type fixture struct {
	routes   http.Handler
	store    *storetest.Store
	catalog  *fakeCatalog
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := storetest.New()
	cat := &fakeCatalog{products: map[string]catalog.Product{
		"p1": {
			ID: "p1", Name: "Eternal Gold Ring", Category: "rings",
			Price: decimal.NewFromInt(35000), ImageURL: "rings/eternal.jpg",
			Active: true, StockQuantity: 5,
		},
		"p2": {
			ID: "p2", Name: "Pearl Necklace", Category: "necklaces",
			Price: decimal.NewFromInt(28000), ImageURL: "necklaces/pearl.jpg",
			Active: true, StockQuantity: 0,
		},
		"p3": {
			ID: "p3", Name: "Retired Band", Category: "rings",
			Price: decimal.NewFromInt(9000), Active: false, StockQuantity: 2,
		},
	}}

	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(testAPIKey))
	hash := hex.EncodeToString(mac.Sum(nil))
	keys := &fakeKeys{byHash: map[string]*auth.APIKeyInfo{
		hash: {ID: "default", KeyHash: hash, Name: "test key"},
	}}

	sessions := session.NewManager(zap.NewNop(), st, st, nil)
	t.Cleanup(sessions.Shutdown)

	verifier := &fakeVerifier{tokens: map[string]identity.Identity{
		testToken: {ID: "user-1", DisplayName: "Ava Chen", Email: "ava@example.com"},
	}}

	h := New(
		Config{ImageBaseURL: "https://img.example.com"},
		sessions,
		admin.NewService(zap.NewNop(), st, cat),
		cat,
		verifier,
		NewSecurity(keys, []byte(testPepper)),
	)
	return &fixture{routes: h.Routes(), store: st, catalog: cat, sessions: sessions}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.routes.ServeHTTP(w, req)
	return w
}

func (f *fixture) doAdmin(t *testing.T, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	f.routes.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v),
		"body: %s", w.Body.String())
	return v
}

// --- Catalog ---

func TestListProducts_Public(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	products := decodeJSON[[]map[string]any](t, w)
	require.Len(t, products, 2, "inactive products are hidden")
	for _, p := range products {
		assert.NotEqual(t, "p3", p["id"])
	}
}

func TestListProducts_ImageBaseURL(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/products/p1", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	p := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "https://img.example.com/rings/eternal.jpg", p["image"])
	assert.Equal(t, float64(35000), p["price"])
	assert.Equal(t, true, p["in_stock"])
}

func TestGetProduct_SoldOut(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/products/p2", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeJSON[map[string]any](t, w)["in_stock"])
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/products/missing", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Auth ---

func TestSession_MissingToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSession_InvalidToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/cart", "bogus", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSession_Profile(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/session", testToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON[map[string]any](t, w)
	user := body["user"].(map[string]any)
	assert.Equal(t, "user-1", user["id"])
	assert.Equal(t, "Ava Chen", user["name"])
	assert.Equal(t, float64(0), body["cart_count"])
	assert.Equal(t, float64(0), body["unread_notifications"])
}

func TestSignOut_DetachesSession(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/session", testToken, "").Code)
	_, attached := f.sessions.Get("user-1")
	require.True(t, attached)

	w := f.do(t, http.MethodDelete, "/api/session", testToken, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, attached = f.sessions.Get("user-1")
	assert.False(t, attached)
}

// --- Cart ---

func TestCartFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/cart/items", testToken, `{"product_id":"p1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON[map[string]any](t, w)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	line := items[0].(map[string]any)
	assert.Equal(t, "p1", line["product_id"])
	assert.Equal(t, float64(1), line["quantity"])
	assert.Equal(t, "https://img.example.com/rings/eternal.jpg", line["image"])
	assert.Equal(t, float64(35000), body["total"])
	assert.Equal(t, float64(1), body["count"])

	// Bump the quantity, then drop the line.
	w = f.do(t, http.MethodPut, "/api/cart/items/p1", testToken, `{"quantity":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(105000), decodeJSON[map[string]any](t, w)["total"])

	w = f.do(t, http.MethodDelete, "/api/cart/items/p1", testToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeJSON[map[string]any](t, w)["count"])
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/cart/items", testToken, `{"product_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddToCart_SoldOut(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/cart/items", testToken, `{"product_id":"p2"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAddToCart_BadBody(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest,
		f.do(t, http.MethodPost, "/api/cart/items", testToken, `{`).Code)
	assert.Equal(t, http.StatusBadRequest,
		f.do(t, http.MethodPost, "/api/cart/items", testToken, `{}`).Code)
}

// --- Wishlist ---

func TestWishlist_DuplicateRejected(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/wishlist/items", testToken, `{"product_id":"p1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeJSON[[]map[string]any](t, w), 1)

	w = f.do(t, http.MethodPost, "/api/wishlist/items", testToken, `{"product_id":"p1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Addresses ---

const addressBody = `{"recipient":"Ava Chen","street":"12 Marine Drive","city":"Mumbai","postal_code":"400020","country":"IN"}`

func TestAddAddress(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/addresses", testToken, addressBody)
	require.Equal(t, http.StatusCreated, w.Code)

	a := decodeJSON[map[string]any](t, w)
	assert.NotEmpty(t, a["id"])
	assert.Equal(t, true, a["is_default"], "first address becomes default")
}

func TestAddAddress_MissingFields(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/addresses", testToken, `{"recipient":"Ava Chen"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAddress_NotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/api/addresses/missing", testToken, addressBody)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Orders ---

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/api/addresses", testToken, addressBody).Code)
	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPost, "/api/cart/items", testToken, `{"product_id":"p1"}`).Code)

	w := f.do(t, http.MethodPost, "/api/orders", testToken, `{"payment_method":"card"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	o := decodeJSON[map[string]any](t, w)
	assert.Equal(t, "pending", o["status"])
	assert.Equal(t, float64(35000), o["total"])
	assert.Contains(t, o["shipping_address"], "12 Marine Drive")

	// The cart is consumed by the order.
	w = f.do(t, http.MethodGet, "/api/cart", testToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeJSON[map[string]any](t, w)["count"])
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/api/addresses", testToken, addressBody).Code)

	w := f.do(t, http.MethodPost, "/api/orders", testToken, `{"payment_method":"card"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrder_NoAddress(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPost, "/api/cart/items", testToken, `{"product_id":"p1"}`).Code)

	w := f.do(t, http.MethodPost, "/api/orders", testToken, `{"payment_method":"card"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlaceOrder_MissingPaymentMethod(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/orders", testToken, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Admin ---

func TestAdmin_MissingKey(t *testing.T) {
	f := newFixture(t)

	w := f.doAdmin(t, http.MethodGet, "/api/admin/orders", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_WrongKey(t *testing.T) {
	f := newFixture(t)

	w := f.doAdmin(t, http.MethodGet, "/api/admin/orders", "not-the-key", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_UpdateOrderStatus(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/api/addresses", testToken, addressBody).Code)
	require.Equal(t, http.StatusOK,
		f.do(t, http.MethodPost, "/api/cart/items", testToken, `{"product_id":"p1"}`).Code)
	placed := decodeJSON[map[string]any](t,
		f.do(t, http.MethodPost, "/api/orders", testToken, `{"payment_method":"card"}`))
	orderID := placed["id"].(string)

	w := f.doAdmin(t, http.MethodPut, "/api/admin/orders/"+orderID+"/status",
		testAPIKey, `{"status":"shipped"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shipped", decodeJSON[map[string]any](t, w)["status"])

	// Backward moves are rejected.
	w = f.doAdmin(t, http.MethodPut, "/api/admin/orders/"+orderID+"/status",
		testAPIKey, `{"status":"processing"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unknown statuses never reach the order.
	w = f.doAdmin(t, http.MethodPut, "/api/admin/orders/"+orderID+"/status",
		testAPIKey, `{"status":"teleported"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_ProductCRUD(t *testing.T) {
	f := newFixture(t)

	w := f.doAdmin(t, http.MethodPost, "/api/admin/products", testAPIKey,
		`{"name":"Opal Ring","category":"rings","price":41000,"stock_quantity":4}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeJSON[map[string]any](t, w)
	id := created["id"].(string)
	require.NotEmpty(t, id)

	w = f.doAdmin(t, http.MethodGet, "/api/admin/products", testAPIKey, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON[[]map[string]any](t, w), 4)

	w = f.doAdmin(t, http.MethodDelete, "/api/admin/products/"+id, testAPIKey, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, err := f.catalog.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestAdmin_InvalidProduct(t *testing.T) {
	f := newFixture(t)

	w := f.doAdmin(t, http.MethodPost, "/api/admin/products", testAPIKey,
		`{"name":"","price":100}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
