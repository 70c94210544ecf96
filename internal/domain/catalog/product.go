package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. The catalog is
// owned by the back-office; the storefront treats it as read-only.
type Product struct {
	ID            string
	Name          string
	Category      string
	Price         decimal.Decimal
	ImageURL      string
	Active        bool
	StockQuantity int
}

// Orderable reports whether the product can currently be added to a cart.
// Inactive products and products with zero stock are not orderable.
func (p *Product) Orderable() bool {
	return p.Active && p.StockQuantity > 0
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}

// AdminRepository extends Repository with the back-office catalog mutations.
type AdminRepository interface {
	Repository
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
