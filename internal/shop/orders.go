package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/gleam-storefront/internal/domain/address"
	"github.com/xenking/gleam-storefront/internal/domain/cart"
	"github.com/xenking/gleam-storefront/internal/domain/order"
	"github.com/xenking/gleam-storefront/internal/store"
)

// Orders returns the mirrored order history, newest first.
func (s *Service) Orders() []order.Order {
	return s.orders.Snapshot()
}

// OrderLines reads the lines of one order from the store. Lines are immutable
// and unbounded across the order history, so they are fetched on demand
// instead of being mirrored.
func (s *Service) OrderLines(ctx context.Context, orderID string) ([]order.Line, error) {
	raws, err := s.store.Query(ctx, order.LinesTable, store.Filter{Field: "order_id", Value: orderID})
	if err != nil {
		return nil, errors.Wrap(err, "load order lines")
	}
	lines := make([]order.Line, 0, len(raws))
	for _, raw := range raws {
		line, err := decodeRow[order.Line](raw)
		if err != nil {
			s.lg.Warn("malformed order line skipped", zap.Error(err))
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// PlaceOrder turns the current cart into an order: header, one line per cart
// line with snapshot values, then cart teardown. The three remote effects are
// one logical transaction; if line creation fails the header is compensated
// away (best effort) and the cart is left untouched.
func (s *Service) PlaceOrder(ctx context.Context, paymentMethod string, ship address.Address) (*order.Order, error) {
	if s.id.ID == "" {
		return nil, ErrNotAuthenticated
	}

	lines := s.cart.Snapshot()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	total := decimalSum(lines)
	header := order.Order{
		ID:              s.newID(),
		OrderNumber:     s.orderNumber(),
		UserID:          s.id.ID,
		CustomerName:    s.id.DisplayName,
		Total:           total,
		Status:          order.StatusPending,
		PaymentMethod:   paymentMethod,
		ShippingAddress: formatAddress(ship),
		PlacedAt:        s.now(),
	}

	stored, err := s.store.Insert(ctx, order.Table, header)
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	for _, l := range lines {
		line := order.Line{
			ID:        s.newID(),
			OrderID:   header.ID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Price,
		}
		if _, err := s.store.Insert(ctx, order.LinesTable, line); err != nil {
			s.compensateOrder(ctx, header.ID)
			return nil, errors.Wrap(err, "create order lines")
		}
	}

	// Lines are durable; tear the cart down. A failure here leaves orphaned
	// cart rows remotely, which the next feed event or reload reconciles.
	for _, l := range lines {
		if err := s.store.Delete(ctx, cart.Table, l.ID); err != nil {
			s.lg.Error("clear cart line after order",
				zap.String("order_id", header.ID),
				zap.String("line_id", l.ID),
				zap.Error(err),
			)
		}
	}
	s.cart.Clear()

	placed, err := decodeRow[order.Order](stored)
	if err != nil {
		placed = header
	}
	s.orders.Upsert(placed)
	return &placed, nil
}

// compensateOrder deletes an order header whose lines could not be created.
// Cleanup failure is logged, not surfaced; the original line error is what
// the caller sees.
func (s *Service) compensateOrder(ctx context.Context, orderID string) {
	if err := s.store.Delete(ctx, order.Table, orderID); err != nil {
		s.lg.Error("compensate order header", zap.String("order_id", orderID), zap.Error(err))
	}
}

// orderNumber generates a globally-unique order number: a year component
// plus a random unique suffix, e.g. ORD-2026-9F3A1C42.
func (s *Service) orderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(s.newID(), "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("ORD-%d-%s", s.now().Year(), suffix)
}

func formatAddress(a address.Address) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Recipient, a.Street, a.City, a.PostalCode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
