//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"
)

func TestAdmin_RequiresAPIKey(t *testing.T) {
	resp := doGet(t, "/api/admin/orders")
	defer resp.Body.Close()

	mustStatus(t, resp, http.StatusUnauthorized)
}

// TestOrderStatusNotification walks an order through its lifecycle from the
// back office and checks each transition lands in the customer's
// notifications exactly once.
func TestOrderStatusNotification(t *testing.T) {
	// Place an order as Ava.
	resp := doRequest(t, http.MethodPost, "/api/addresses", tokenAva, map[string]any{
		"recipient": "Ava Chen",
		"street":    "12 Marine Drive",
		"city":      "Mumbai",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add address: got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, "/api/cart/items", tokenAva,
		map[string]string{"product_id": "6"})
	mustStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = doRequest(t, http.MethodPost, "/api/orders", tokenAva,
		map[string]string{"payment_method": "card"})
	mustStatus(t, resp, http.StatusCreated)
	placed := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()

	// The back office ships it, skipping the processing step.
	resp = doAdmin(t, http.MethodPut, "/api/admin/orders/"+placed.ID+"/status",
		map[string]string{"status": "shipped"})
	mustStatus(t, resp, http.StatusOK)
	updated := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if updated.Status != "shipped" {
		t.Fatalf("status: got %q, want shipped", updated.Status)
	}

	// Moving backwards is rejected.
	resp = doAdmin(t, http.MethodPut, "/api/admin/orders/"+placed.ID+"/status",
		map[string]string{"status": "processing"})
	mustStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	// The transition reaches Ava's notifications through the change feed.
	notif := waitForNotification(t, placed.ID)
	if notif.OrderNumber != placed.OrderNumber {
		t.Errorf("order number: got %q, want %q", notif.OrderNumber, placed.OrderNumber)
	}
	if notif.Status != "shipped" {
		t.Errorf("notification status: got %q, want shipped", notif.Status)
	}
	if notif.IsRead {
		t.Error("fresh notification should be unread")
	}

	// Mark it read.
	resp = doRequest(t, http.MethodPost, "/api/notifications/"+notif.ID+"/read", tokenAva, nil)
	mustStatus(t, resp, http.StatusOK)
	after := decodeJSON[notificationsResponse](t, resp)
	resp.Body.Close()
	for _, n := range after.Items {
		if n.ID == notif.ID && !n.IsRead {
			t.Error("notification still unread after marking")
		}
	}
}

// waitForNotification polls Ava's notifications until one for orderID shows
// up. Feed delivery is asynchronous.
func waitForNotification(t *testing.T, orderID string) notificationItem {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp := doRequest(t, http.MethodGet, "/api/notifications", tokenAva, nil)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			time.Sleep(200 * time.Millisecond)
			continue
		}
		body := decodeJSON[notificationsResponse](t, resp)
		resp.Body.Close()

		for _, n := range body.Items {
			if n.OrderID == orderID {
				return n
			}
		}
		time.Sleep(200 * time.Millisecond)
	}

	t.Fatalf("no notification for order %s within deadline", orderID)
	return notificationItem{}
}

func TestAdmin_ProductLifecycle(t *testing.T) {
	// Create a product.
	resp := doAdmin(t, http.MethodPost, "/api/admin/products", map[string]any{
		"name":           "Integration Opal Ring",
		"category":       "Rings",
		"price":          41000,
		"stock_quantity": 4,
	})
	mustStatus(t, resp, http.StatusCreated)
	created := decodeJSON[productResponse](t, resp)
	resp.Body.Close()
	if created.ID == "" {
		t.Fatal("created product has no id")
	}

	// It is visible on the storefront.
	resp = doGet(t, "/api/products/" + created.ID)
	mustStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// Deactivate it; the storefront list hides it.
	resp = doAdmin(t, http.MethodPut, "/api/admin/products/"+created.ID, map[string]any{
		"name":           "Integration Opal Ring",
		"category":       "Rings",
		"price":          41000,
		"stock_quantity": 4,
		"active":         false,
	})
	mustStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = doGet(t, "/api/products")
	mustStatus(t, resp, http.StatusOK)
	products := decodeJSON[[]productResponse](t, resp)
	resp.Body.Close()
	for _, p := range products {
		if p.ID == created.ID {
			t.Error("inactive product visible on the storefront")
		}
	}

	// Delete it.
	resp = doAdmin(t, http.MethodDelete, "/api/admin/products/"+created.ID, nil)
	mustStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = doGet(t, "/api/products/" + created.ID)
	mustStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestAdmin_InvalidStatusRejected(t *testing.T) {
	resp := doAdmin(t, http.MethodPut, "/api/admin/orders/any/status",
		map[string]string{"status": "vanished"})
	defer resp.Body.Close()

	mustStatus(t, resp, http.StatusBadRequest)
}
