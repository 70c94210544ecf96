// Package mirror provides in-memory collections that mirror per-user tables
// of the remote store. A collection is rebuilt wholesale at session start and
// then kept consistent by idempotent application of row-level change events.
package mirror

import (
	"sort"
	"sync"
)

// Row is any entity that can live in a Collection.
type Row interface {
	RowID() string
}

// Collection holds the local reflection of one remote table, keyed by row ID.
//
// Application of the same event twice, or of an event racing the bulk load,
// converges: Upsert replaces any existing row with the same ID (or adds the
// row if unknown) and Remove of an absent ID is a no-op. Only per-row
// last-write-wins is guaranteed, not global ordering.
type Collection[T Row] struct {
	mu   sync.RWMutex
	rows map[string]T
	less func(a, b T) bool
}

// New creates an empty Collection. Snapshots are sorted with less; a nil less
// leaves snapshot order unspecified.
func New[T Row](less func(a, b T) bool) *Collection[T] {
	return &Collection[T]{
		rows: make(map[string]T),
		less: less,
	}
}

// Replace discards the current contents and installs rows wholesale.
// Used by the bulk load at session start.
func (c *Collection[T]) Replace(rows []T) {
	next := make(map[string]T, len(rows))
	for _, r := range rows {
		next[r.RowID()] = r
	}
	c.mu.Lock()
	c.rows = next
	c.mu.Unlock()
}

// Upsert inserts or replaces the row with a matching ID.
func (c *Collection[T]) Upsert(row T) {
	c.mu.Lock()
	c.rows[row.RowID()] = row
	c.mu.Unlock()
}

// Remove deletes the row with the given ID; absent IDs are a no-op.
func (c *Collection[T]) Remove(id string) {
	c.mu.Lock()
	delete(c.rows, id)
	c.mu.Unlock()
}

// Clear empties the collection.
func (c *Collection[T]) Clear() {
	c.mu.Lock()
	c.rows = make(map[string]T)
	c.mu.Unlock()
}

// Get returns the row with the given ID.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	row, ok := c.rows[id]
	return row, ok
}

// Find returns the first row matching pred.
func (c *Collection[T]) Find(pred func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, row := range c.rows {
		if pred(row) {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of rows.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// Snapshot returns a sorted copy of all rows. Callers own the slice.
func (c *Collection[T]) Snapshot() []T {
	c.mu.RLock()
	out := make([]T, 0, len(c.rows))
	for _, row := range c.rows {
		out = append(out, row)
	}
	c.mu.RUnlock()

	if c.less != nil {
		sort.Slice(out, func(i, j int) bool { return c.less(out[i], out[j]) })
	}
	return out
}
