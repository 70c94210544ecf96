// Package address defines the shipping address entity.
package address

import "time"

// Table is the remote store table holding addresses.
const Table = "addresses"

// Address is a user shipping address. At most one address per user has
// IsDefault set; the first address a user adds becomes the default.
type Address struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Recipient  string    `json:"recipient"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	Phone      string    `json:"phone"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// RowID implements mirror.Row.
func (a Address) RowID() string { return a.ID }

// Fields holds the caller-supplied address attributes for create and update
// operations. The default flag is advisory on create: the first address of a
// user always becomes the default regardless of it.
type Fields struct {
	Recipient  string
	Street     string
	City       string
	PostalCode string
	Country    string
	Phone      string
	IsDefault  bool
}
