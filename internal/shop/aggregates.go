package shop

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/gleam-storefront/internal/domain/cart"
)

// Derived aggregates are pure recomputations over mirror snapshots; nothing
// is cached, so they can never drift from the mirrored state.

// CartTotal returns the sum of price x quantity across all cart lines.
func (s *Service) CartTotal() decimal.Decimal {
	return decimalSum(s.cart.Snapshot())
}

// CartItemCount returns the total number of units in the cart.
func (s *Service) CartItemCount() int {
	count := 0
	for _, l := range s.cart.Snapshot() {
		count += l.Quantity
	}
	return count
}

// UnreadNotificationCount returns the number of unread notifications.
func (s *Service) UnreadNotificationCount() int {
	count := 0
	for _, n := range s.notifications.Snapshot() {
		if !n.IsRead {
			count++
		}
	}
	return count
}

func decimalSum(lines []cart.Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}
