// Package notification defines order-status notifications delivered to the
// storefront user.
package notification

import (
	"fmt"
	"time"

	"github.com/xenking/gleam-storefront/internal/domain/order"
)

// Table is the remote store table holding notifications.
const Table = "notifications"

// Notification records a single observed order-status transition. Exactly one
// is generated per transition; none is generated for an order's creation.
// Only IsRead is mutable after insert.
type Notification struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	OrderID     string       `json:"order_id"`
	OrderNumber string       `json:"order_number"`
	Message     string       `json:"message"`
	Status      order.Status `json:"status"`
	OldStatus   order.Status `json:"old_status"`
	IsRead      bool         `json:"is_read"`
	CreatedAt   time.Time    `json:"created_at"`
}

// RowID implements mirror.Row.
func (n Notification) RowID() string { return n.ID }

// StatusMessage returns the user-facing message for an order reaching the
// given status. Unknown statuses get a generic fallback.
func StatusMessage(s order.Status) string {
	switch s {
	case order.StatusPending:
		return "Your order has been placed and is pending confirmation."
	case order.StatusProcessing:
		return "Great news! Your order is now being processed."
	case order.StatusShipped:
		return "Your order has been shipped!"
	case order.StatusDelivered:
		return "Your order has been delivered!"
	default:
		return fmt.Sprintf("Your order status has been updated to: %s", s)
	}
}
