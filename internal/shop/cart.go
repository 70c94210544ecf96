package shop

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/gleam-storefront/internal/domain/cart"
	"github.com/xenking/gleam-storefront/internal/domain/catalog"
	"github.com/xenking/gleam-storefront/internal/domain/wishlist"
)

// CartLines returns the mirrored cart, oldest line first.
func (s *Service) CartLines() []cart.Line {
	return s.cart.Snapshot()
}

// AddToCart adds one unit of the product to the cart: an existing line gets
// its quantity incremented, otherwise a new line with a product snapshot is
// inserted. Writes for the same product are serialized so rapid repeat adds
// cannot interleave.
func (s *Service) AddToCart(ctx context.Context, p *catalog.Product) error {
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}
	if !p.Orderable() {
		return ErrOutOfStock
	}

	unlock := s.cartLocks.lock(p.ID)
	defer unlock()

	if line, ok := s.cartLine(p.ID); ok {
		return s.setLineQuantity(ctx, line, line.Quantity+1)
	}

	row := cart.Line{
		ID:        s.newID(),
		UserID:    s.id.ID,
		ProductID: p.ID,
		Quantity:  1,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		CreatedAt: s.now(),
	}
	stored, err := s.store.Insert(ctx, cart.Table, row)
	if err != nil {
		return errors.Wrap(err, "insert cart line")
	}
	s.patchCart(stored)
	return nil
}

// RemoveFromCart deletes the cart line for the product. Absent lines are a
// no-op.
func (s *Service) RemoveFromCart(ctx context.Context, productID string) error {
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}

	unlock := s.cartLocks.lock(productID)
	defer unlock()

	line, ok := s.cartLine(productID)
	if !ok {
		return nil
	}
	if err := s.store.Delete(ctx, cart.Table, line.ID); err != nil {
		return errors.Wrap(err, "delete cart line")
	}
	s.cart.Remove(line.ID)
	return nil
}

// SetCartQuantity sets the line quantity for the product. A quantity of zero
// or less removes the line instead of leaving a zero-quantity row.
func (s *Service) SetCartQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, productID)
	}
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}

	unlock := s.cartLocks.lock(productID)
	defer unlock()

	line, ok := s.cartLine(productID)
	if !ok {
		return nil
	}
	return s.setLineQuantity(ctx, line, quantity)
}

func (s *Service) setLineQuantity(ctx context.Context, line cart.Line, quantity int) error {
	stored, err := s.store.Update(ctx, cart.Table, line.ID, map[string]any{
		"quantity": quantity,
	})
	if err != nil {
		return errors.Wrap(err, "update cart line")
	}
	s.patchCart(stored)
	return nil
}

func (s *Service) cartLine(productID string) (cart.Line, bool) {
	return s.cart.Find(func(l cart.Line) bool { return l.ProductID == productID })
}

// patchCart applies a write result to the cart mirror immediately. The feed
// event for the same row reconciles idempotently later.
func (s *Service) patchCart(stored []byte) {
	line, err := decodeRow[cart.Line](stored)
	if err != nil {
		s.lg.Warn("malformed cart write result", zap.Error(err))
		return
	}
	s.cart.Upsert(line)
}

// WishlistItems returns the mirrored wishlist, oldest item first.
func (s *Service) WishlistItems() []wishlist.Item {
	return s.wishlist.Snapshot()
}

// AddToWishlist inserts the product with a snapshot. A product already on the
// wishlist yields ErrDuplicateItem; duplicates are rejected, never merged.
func (s *Service) AddToWishlist(ctx context.Context, p *catalog.Product) error {
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}
	if _, ok := s.wishlistItem(p.ID); ok {
		return ErrDuplicateItem
	}

	row := wishlist.Item{
		ID:        s.newID(),
		UserID:    s.id.ID,
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		CreatedAt: s.now(),
	}
	stored, err := s.store.Insert(ctx, wishlist.Table, row)
	if err != nil {
		return errors.Wrap(err, "insert wishlist item")
	}
	item, err := decodeRow[wishlist.Item](stored)
	if err != nil {
		s.lg.Warn("malformed wishlist write result", zap.Error(err))
		return nil
	}
	s.wishlist.Upsert(item)
	return nil
}

// RemoveFromWishlist deletes the wishlist item for the product. Absent items
// are a no-op.
func (s *Service) RemoveFromWishlist(ctx context.Context, productID string) error {
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}
	item, ok := s.wishlistItem(productID)
	if !ok {
		return nil
	}
	if err := s.store.Delete(ctx, wishlist.Table, item.ID); err != nil {
		return errors.Wrap(err, "delete wishlist item")
	}
	s.wishlist.Remove(item.ID)
	return nil
}

func (s *Service) wishlistItem(productID string) (wishlist.Item, bool) {
	return s.wishlist.Find(func(i wishlist.Item) bool { return i.ProductID == productID })
}
