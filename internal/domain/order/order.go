package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Store tables for order headers and their lines.
const (
	Table      = "orders"
	LinesTable = "order_items"
)

// Order is an immutable header plus a status field that only moves forward.
// Everything except Status is fixed at placement time; Status is mutated
// exclusively by the back-office.
type Order struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          string          `json:"user_id"`
	CustomerName    string          `json:"customer_name"`
	Total           decimal.Decimal `json:"total"`
	Status          Status          `json:"status"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress string          `json:"shipping_address"`
	PlacedAt        time.Time       `json:"placed_at"`
}

// RowID implements mirror.Row.
func (o Order) RowID() string { return o.ID }

// Line is a single order line. Name and UnitPrice are snapshotted from the
// cart at order time and never change afterwards.
type Line struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Name      string          `json:"product_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

// RowID implements mirror.Row.
func (l Line) RowID() string { return l.ID }

// Subtotal returns unit price multiplied by quantity for this line.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
