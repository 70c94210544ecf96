// Package handler exposes the storefront gateway over HTTP. Storefront routes
// are session-scoped: the bearer token resolves to an identity whose live
// synchronizer serves the request. Back-office routes authenticate with an
// API key instead and are not session-scoped.
package handler

import (
	"net/http"

	"github.com/xenking/gleam-storefront/internal/admin"
	"github.com/xenking/gleam-storefront/internal/domain/catalog"
	"github.com/xenking/gleam-storefront/internal/domain/identity"
	"github.com/xenking/gleam-storefront/internal/session"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler routes HTTP requests to the session manager, the back-office
// service and the catalog.
type Handler struct {
	sessions *session.Manager
	admin    *admin.Service
	catalog  catalog.Repository
	verifier identity.Verifier
	security *Security

	imageBaseURL string
}

// New constructs a Handler with the required dependencies.
func New(
	cfg Config,
	sessions *session.Manager,
	adm *admin.Service,
	cat catalog.Repository,
	verifier identity.Verifier,
	security *Security,
) *Handler {
	return &Handler{
		sessions:     sessions,
		admin:        adm,
		catalog:      cat,
		verifier:     verifier,
		security:     security,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes builds the full route table.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.Handle("POST /api/session", h.withSession(h.getSession))
	mux.Handle("GET /api/session", h.withSession(h.getSession))
	mux.Handle("DELETE /api/session", h.withSession(h.signOut))

	mux.Handle("GET /api/cart", h.withSession(h.getCart))
	mux.Handle("POST /api/cart/items", h.withSession(h.addToCart))
	mux.Handle("PUT /api/cart/items/{productID}", h.withSession(h.setCartQuantity))
	mux.Handle("DELETE /api/cart/items/{productID}", h.withSession(h.removeFromCart))

	mux.Handle("GET /api/wishlist", h.withSession(h.getWishlist))
	mux.Handle("POST /api/wishlist/items", h.withSession(h.addToWishlist))
	mux.Handle("DELETE /api/wishlist/items/{productID}", h.withSession(h.removeFromWishlist))

	mux.Handle("GET /api/addresses", h.withSession(h.listAddresses))
	mux.Handle("POST /api/addresses", h.withSession(h.addAddress))
	mux.Handle("PUT /api/addresses/{id}", h.withSession(h.updateAddress))
	mux.Handle("DELETE /api/addresses/{id}", h.withSession(h.deleteAddress))

	mux.Handle("GET /api/orders", h.withSession(h.listOrders))
	mux.Handle("POST /api/orders", h.withSession(h.placeOrder))
	mux.Handle("GET /api/orders/{id}/items", h.withSession(h.orderLines))

	mux.Handle("GET /api/notifications", h.withSession(h.listNotifications))
	mux.Handle("POST /api/notifications/read-all", h.withSession(h.markAllNotificationsRead))
	mux.Handle("POST /api/notifications/{id}/read", h.withSession(h.markNotificationRead))
	mux.Handle("DELETE /api/notifications/{id}", h.withSession(h.deleteNotification))
	mux.Handle("DELETE /api/notifications", h.withSession(h.clearNotifications))

	mux.Handle("GET /api/admin/orders", h.withAPIKey(h.adminListOrders))
	mux.Handle("PUT /api/admin/orders/{id}/status", h.withAPIKey(h.adminUpdateOrderStatus))
	mux.Handle("GET /api/admin/products", h.withAPIKey(h.adminListProducts))
	mux.Handle("POST /api/admin/products", h.withAPIKey(h.adminCreateProduct))
	mux.Handle("PUT /api/admin/products/{id}", h.withAPIKey(h.adminUpdateProduct))
	mux.Handle("DELETE /api/admin/products/{id}", h.withAPIKey(h.adminDeleteProduct))

	return mux
}
