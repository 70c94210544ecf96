package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/gleam-storefront/internal/store"
)

type testRow struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

func seedRow(t *testing.T, st *Store, id, status string) {
	t.Helper()
	_, err := st.Insert(context.Background(), "orders", testRow{ID: id, UserID: "u1", Status: status})
	require.NoError(t, err)
}

func TestUpdateIf_GuardMatches(t *testing.T) {
	st := New()
	seedRow(t, st, "r1", "pending")

	var events []store.Event
	_, err := st.Subscribe("orders", store.Filter{}, func(ev store.Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	merged, err := st.UpdateIf(context.Background(), "orders", "r1",
		map[string]any{"status": "shipped"},
		store.Filter{Field: "status", Value: "pending"},
	)
	require.NoError(t, err)

	status, ok := store.Field(merged, "status")
	require.True(t, ok)
	assert.Equal(t, "shipped", status)

	require.Len(t, events, 1)
	assert.Equal(t, store.EventUpdate, events[0].Kind)
}

func TestUpdateIf_GuardMisses(t *testing.T) {
	st := New()
	seedRow(t, st, "r1", "shipped")

	var events []store.Event
	_, err := st.Subscribe("orders", store.Filter{}, func(ev store.Event) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	_, err = st.UpdateIf(context.Background(), "orders", "r1",
		map[string]any{"status": "processing"},
		store.Filter{Field: "status", Value: "pending"},
	)
	require.ErrorIs(t, err, store.ErrConflict)

	// Row untouched, nothing emitted.
	status, ok := store.Field(st.Rows("orders")[0], "status")
	require.True(t, ok)
	assert.Equal(t, "shipped", status)
	assert.Empty(t, events)
}

func TestUpdateIf_MissingRow(t *testing.T) {
	st := New()

	_, err := st.UpdateIf(context.Background(), "orders", "missing",
		map[string]any{"status": "shipped"},
		store.Filter{Field: "status", Value: "pending"},
	)
	require.ErrorIs(t, err, store.ErrNoRow)
}

func TestUpdateIf_SharesUpdateErrorInjection(t *testing.T) {
	st := New()
	seedRow(t, st, "r1", "pending")
	st.FailNextUpdate("orders", assert.AnError)

	_, err := st.UpdateIf(context.Background(), "orders", "r1",
		map[string]any{"status": "shipped"},
		store.Filter{Field: "status", Value: "pending"},
	)
	require.ErrorIs(t, err, assert.AnError)
}
