// Package store defines the remote storage collaborator boundary: generic
// row CRUD over JSON rows plus a row-level change feed. The storefront owns
// no durable state; everything it holds locally is rebuildable from here.
package store

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

var (
	// ErrNoRow is returned by Update and Delete when the target row does not exist.
	ErrNoRow = errors.New("row not found")
	// ErrConflict is returned by UpdateIf when the row exists but the guard
	// no longer matches it.
	ErrConflict = errors.New("row changed concurrently")
)

// EventKind discriminates row-level change events.
type EventKind uint8

const (
	EventInsert EventKind = iota + 1
	EventUpdate
	EventDelete
)

func (k EventKind) String() string {
	switch k {
	case EventInsert:
		return "insert"
	case EventUpdate:
		return "update"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is a single row-level change delivered on the feed. Row is the JSON
// object after the change; for deletes it carries at least the id field.
type Event struct {
	Kind  EventKind
	Table string
	Row   []byte
}

// Filter scopes a query or subscription to rows whose Field equals Value.
// The zero Filter matches every row.
type Filter struct {
	Field string
	Value string
}

// ByUser returns the filter used by every per-user collection.
func ByUser(userID string) Filter {
	return Filter{Field: "user_id", Value: userID}
}

// Handler receives feed events. Events for one subscription are delivered
// sequentially; a handler must not block for long.
type Handler func(Event)

// Subscription is a handle on an open change-feed subscription.
type Subscription interface {
	Close()
}

// Store is the generic row interface of the remote storage collaborator.
// Rows are JSON objects; writes return the row as stored so callers can
// patch local state without waiting for the feed.
//
// UpdateIf is a compare-and-set: the patch lands only while the guard field
// still holds the given value, so a read-validate-write sequence cannot be
// invalidated by a concurrent writer. It returns ErrConflict when the guard
// misses and ErrNoRow when the row is gone.
type Store interface {
	Query(ctx context.Context, table string, f Filter) ([][]byte, error)
	Insert(ctx context.Context, table string, row any) ([]byte, error)
	Update(ctx context.Context, table, id string, patch map[string]any) ([]byte, error)
	UpdateIf(ctx context.Context, table, id string, patch map[string]any, guard Filter) ([]byte, error)
	Delete(ctx context.Context, table, id string) error
}

// Feed delivers row-level change events for a table.
type Feed interface {
	Subscribe(table string, f Filter, h Handler) (Subscription, error)
}

// RowID extracts the "id" field from a JSON row without decoding the rest.
func RowID(row []byte) (string, error) {
	var id string
	d := jx.DecodeBytes(row)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "id" {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		id = v
		return nil
	}); err != nil {
		return "", errors.Wrap(err, "decode row")
	}
	if id == "" {
		return "", errors.New("row has no id")
	}
	return id, nil
}

// Field extracts a single string field from a JSON row.
func Field(row []byte, name string) (string, bool) {
	var (
		val   string
		found bool
	)
	d := jx.DecodeBytes(row)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != name {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		val, found = v, true
		return nil
	}); err != nil {
		return "", false
	}
	return val, found
}
