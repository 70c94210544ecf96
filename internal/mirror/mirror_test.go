package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID  string
	Seq int
}

func (r row) RowID() string { return r.ID }

func newColl() *Collection[row] {
	return New(func(a, b row) bool { return a.Seq < b.Seq })
}

func TestReplace_InstallsWholesale(t *testing.T) {
	c := newColl()
	c.Upsert(row{ID: "old", Seq: 1})

	c.Replace([]row{{ID: "a", Seq: 2}, {ID: "b", Seq: 1}})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("old")
	assert.False(t, ok)
}

func TestUpsert_ReplacesSameID(t *testing.T) {
	c := newColl()
	c.Upsert(row{ID: "a", Seq: 1})
	c.Upsert(row{ID: "a", Seq: 5})

	require.Equal(t, 1, c.Len())
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 5, got.Seq)
}

func TestUpsert_Idempotent(t *testing.T) {
	c := newColl()
	c.Upsert(row{ID: "a", Seq: 1})
	c.Upsert(row{ID: "a", Seq: 1})

	assert.Equal(t, 1, c.Len())
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	c := newColl()
	c.Upsert(row{ID: "a", Seq: 1})

	c.Remove("missing")
	c.Remove("a")
	c.Remove("a")

	assert.Equal(t, 0, c.Len())
}

func TestSnapshot_SortedAndOwned(t *testing.T) {
	c := newColl()
	c.Upsert(row{ID: "c", Seq: 3})
	c.Upsert(row{ID: "a", Seq: 1})
	c.Upsert(row{ID: "b", Seq: 2})

	snap := c.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{snap[0].ID, snap[1].ID, snap[2].ID})

	// Mutating the snapshot must not affect the collection.
	snap[0] = row{ID: "z", Seq: 99}
	_, ok := c.Get("a")
	assert.True(t, ok)
}

func TestFind(t *testing.T) {
	c := newColl()
	c.Upsert(row{ID: "a", Seq: 1})
	c.Upsert(row{ID: "b", Seq: 2})

	got, ok := c.Find(func(r row) bool { return r.Seq == 2 })
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)

	_, ok = c.Find(func(r row) bool { return r.Seq == 9 })
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	c := newColl()
	c.Upsert(row{ID: "a", Seq: 1})
	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Snapshot())
}
