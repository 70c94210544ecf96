// Package cart defines the per-user cart line entity mirrored from the
// remote store.
package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table is the remote store table holding cart lines.
const Table = "cart_items"

// Line is a (user, product) cart entry. Product fields are denormalized
// snapshots captured at add-time and stay fixed across later catalog edits.
// At most one Line exists per (user, product).
type Line struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"product_name"`
	Category  string          `json:"product_category"`
	Price     decimal.Decimal `json:"product_price"`
	ImageURL  string          `json:"product_image"`
	CreatedAt time.Time       `json:"created_at"`
}

// RowID implements mirror.Row.
func (l Line) RowID() string { return l.ID }

// Subtotal returns price multiplied by quantity for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
