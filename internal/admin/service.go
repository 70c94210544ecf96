// Package admin implements the back-office operations: order management and
// catalog maintenance. Status changes made here are what the storefront's
// notifier turns into user notifications.
package admin

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/gleam-storefront/internal/domain/catalog"
	"github.com/xenking/gleam-storefront/internal/domain/order"
	"github.com/xenking/gleam-storefront/internal/store"
)

var (
	// ErrOrderNotFound is returned when the target order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidProduct is returned when a catalog write fails validation.
	ErrInvalidProduct = errors.New("invalid product")
)

// Service exposes the back-office operations. Order mutations go through the
// generic store so they surface on the change feed like any other write.
type Service struct {
	lg      *zap.Logger
	store   store.Store
	catalog catalog.AdminRepository
}

// NewService creates the back-office service.
func NewService(lg *zap.Logger, st store.Store, cat catalog.AdminRepository) *Service {
	return &Service{lg: lg, store: st, catalog: cat}
}

// ListOrders returns every order in the store, across all users.
func (s *Service) ListOrders(ctx context.Context) ([]order.Order, error) {
	raws, err := s.store.Query(ctx, order.Table, store.Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders := make([]order.Order, 0, len(raws))
	for _, raw := range raws {
		var o order.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			s.lg.Warn("malformed order row skipped", zap.Error(err))
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to the given status. Transitions are
// strictly forward; backward or repeated transitions are rejected before any
// write happens. The storefront is intentionally unable to reach this path.
//
// The write is a compare-and-set on the status the transition was validated
// against, so two concurrent requests cannot interleave into a backward
// transition: the loser re-reads and re-validates against the winner's result.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, next order.Status) (*order.Order, error) {
	for {
		current, err := s.getOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if !current.Status.CanTransition(next) {
			return nil, errors.Wrapf(order.ErrBackwardTransition,
				"%s -> %s", current.Status, next)
		}

		stored, err := s.store.UpdateIf(ctx, order.Table, orderID,
			map[string]any{"status": string(next)},
			store.Filter{Field: "status", Value: string(current.Status)},
		)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if errors.Is(err, store.ErrNoRow) {
			return nil, ErrOrderNotFound
		}
		if err != nil {
			return nil, errors.Wrap(err, "update order status")
		}

		var updated order.Order
		if err := json.Unmarshal(stored, &updated); err != nil {
			return nil, errors.Wrap(err, "decode updated order")
		}
		return &updated, nil
	}
}

func (s *Service) getOrder(ctx context.Context, orderID string) (*order.Order, error) {
	raws, err := s.store.Query(ctx, order.Table, store.Filter{Field: "id", Value: orderID})
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if len(raws) == 0 {
		return nil, ErrOrderNotFound
	}
	var o order.Order
	if err := json.Unmarshal(raws[0], &o); err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return &o, nil
}

// ListProducts returns the full catalog, including inactive products.
func (s *Service) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return s.catalog.List(ctx)
}

// CreateProduct validates and inserts a catalog product.
func (s *Service) CreateProduct(ctx context.Context, p *catalog.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return s.catalog.Create(ctx, p)
}

// UpdateProduct validates and overwrites a catalog product.
func (s *Service) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	return s.catalog.Update(ctx, p)
}

// DeleteProduct removes a product from the catalog. Cart and order snapshots
// referencing it keep their denormalized copies.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.catalog.Delete(ctx, id)
}

func validateProduct(p *catalog.Product) error {
	if p.Name == "" {
		return errors.Wrap(ErrInvalidProduct, "name required")
	}
	if p.Price.IsNegative() {
		return errors.Wrap(ErrInvalidProduct, "price must not be negative")
	}
	if p.StockQuantity < 0 {
		return errors.Wrap(ErrInvalidProduct, "stock must not be negative")
	}
	return nil
}
