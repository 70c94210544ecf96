// Package wishlist defines the per-user wishlist entity mirrored from the
// remote store.
package wishlist

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table is the remote store table holding wishlist items.
const Table = "wishlist_items"

// Item is a (user, product) wishlist entry with a product snapshot.
// Duplicate inserts for the same product are rejected, not merged.
type Item struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"product_name"`
	Category  string          `json:"product_category"`
	Price     decimal.Decimal `json:"product_price"`
	ImageURL  string          `json:"product_image"`
	CreatedAt time.Time       `json:"created_at"`
}

// RowID implements mirror.Row.
func (i Item) RowID() string { return i.ID }
