package shop

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/gleam-storefront/internal/domain/address"
	"github.com/xenking/gleam-storefront/internal/domain/cart"
	"github.com/xenking/gleam-storefront/internal/domain/catalog"
	"github.com/xenking/gleam-storefront/internal/domain/identity"
	"github.com/xenking/gleam-storefront/internal/domain/notification"
	"github.com/xenking/gleam-storefront/internal/domain/order"
	"github.com/xenking/gleam-storefront/internal/domain/wishlist"
	"github.com/xenking/gleam-storefront/internal/store"
	"github.com/xenking/gleam-storefront/internal/store/storetest"
)

// --- Helpers ---

func testIdentity() identity.Identity {
	return identity.Identity{ID: "user-1", DisplayName: "Ava Chen", Email: "ava@example.com"}
}

// newTestService builds a started Service over an in-memory store with
// deterministic IDs and a ticking clock.
func newTestService(t *testing.T) (*Service, *storetest.Store) {
	t.Helper()

	st := storetest.New()
	svc := New(zap.NewNop(), st, st, testIdentity())

	var seq int
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("row-%d", seq)
	}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ticks int
	svc.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}

	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(svc.Close)
	return svc, st
}

func testProduct(id, name string, price int64, stock int) *catalog.Product {
	return &catalog.Product{
		ID:            id,
		Name:          name,
		Category:      "Rings",
		Price:         decimal.NewFromInt(price),
		ImageURL:      "img/" + id + ".jpg",
		Active:        true,
		StockQuantity: stock,
	}
}

func testAddress(id string, isDefault bool) address.Address {
	return address.Address{
		ID:         id,
		UserID:     "user-1",
		Recipient:  "Ava Chen",
		Street:     "12 Marine Drive",
		City:       "Mumbai",
		PostalCode: "400001",
		Country:    "India",
		IsDefault:  isDefault,
	}
}

func storeEvent(t *testing.T, table string, raw []byte) store.Event {
	t.Helper()
	return store.Event{Kind: store.EventInsert, Table: table, Row: raw}
}

// --- Session lifecycle ---

func TestStart_LoadsExistingState(t *testing.T) {
	st := storetest.New()
	_, err := st.Insert(context.Background(), cart.Table, cart.Line{
		ID: "l1", UserID: "user-1", ProductID: "p1", Quantity: 2,
		Name: "Eternal Gold Ring", Price: decimal.NewFromInt(35000),
	})
	require.NoError(t, err)
	_, err = st.Insert(context.Background(), wishlist.Table, wishlist.Item{
		ID: "w1", UserID: "user-1", ProductID: "p2", Name: "Sapphire Pendant",
	})
	require.NoError(t, err)
	// Another user's line must not leak in.
	_, err = st.Insert(context.Background(), cart.Table, cart.Line{
		ID: "l2", UserID: "user-2", ProductID: "p1", Quantity: 1,
	})
	require.NoError(t, err)

	svc := New(zap.NewNop(), st, st, testIdentity())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close()

	require.Len(t, svc.CartLines(), 1)
	assert.Equal(t, "l1", svc.CartLines()[0].ID)
	assert.Len(t, svc.WishlistItems(), 1)
}

func TestStart_Unauthenticated(t *testing.T) {
	st := storetest.New()
	svc := New(zap.NewNop(), st, st, identity.Identity{})

	err := svc.Start(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestStart_LoadFailureDegradesToEmpty(t *testing.T) {
	st := storetest.New()
	_, err := st.Insert(context.Background(), wishlist.Table, wishlist.Item{
		ID: "w1", UserID: "user-1", ProductID: "p2",
	})
	require.NoError(t, err)
	st.FailNextQuery(cart.Table, assert.AnError)

	svc := New(zap.NewNop(), st, st, testIdentity())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close()

	assert.Empty(t, svc.CartLines())
}

// slowQueryStore delays queries on one table so they finish after a sibling
// load has already failed.
type slowQueryStore struct {
	*storetest.Store
	table string
	delay time.Duration
}

func (s *slowQueryStore) Query(ctx context.Context, table string, f store.Filter) ([][]byte, error) {
	if table == s.table {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.Store.Query(ctx, table, f)
}

func TestStart_LoadFailureIsIsolated(t *testing.T) {
	st := storetest.New()
	_, err := st.Insert(context.Background(), wishlist.Table, wishlist.Item{
		ID: "w1", UserID: "user-1", ProductID: "p2",
	})
	require.NoError(t, err)
	st.FailNextQuery(cart.Table, assert.AnError)

	// The wishlist load outlives the cart failure and must still complete.
	slow := &slowQueryStore{Store: st, table: wishlist.Table, delay: 20 * time.Millisecond}
	svc := New(zap.NewNop(), slow, st, testIdentity())
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Close()

	assert.Empty(t, svc.CartLines())
	assert.Len(t, svc.WishlistItems(), 1)
}

func TestClose_ClearsAllCollections(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.AddToCart(context.Background(), testProduct("p1", "Eternal Gold Ring", 35000, 5)))
	require.NoError(t, svc.AddToWishlist(context.Background(), testProduct("p2", "Sapphire Pendant", 52000, 3)))

	svc.Close()

	assert.Empty(t, svc.CartLines())
	assert.Empty(t, svc.WishlistItems())
	assert.Empty(t, svc.Orders())
	assert.Empty(t, svc.Notifications())
}

func TestClose_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Close()
	svc.Close()
}

// failingFeed rejects the subscription for one table.
type failingFeed struct {
	inner store.Feed
	table string
}

func (f *failingFeed) Subscribe(table string, flt store.Filter, h store.Handler) (store.Subscription, error) {
	if table == f.table {
		return nil, assert.AnError
	}
	return f.inner.Subscribe(table, flt, h)
}

func TestClose_AfterFailedStartReturns(t *testing.T) {
	st := storetest.New()
	svc := New(zap.NewNop(), st, &failingFeed{inner: st, table: order.Table}, testIdentity())

	require.Error(t, svc.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		svc.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after failed Start")
	}
}

// --- Feed application ---

func TestFeedInsert_AppearsInMirror(t *testing.T) {
	svc, st := newTestService(t)

	// A write from another device of the same user arrives via the feed.
	_, err := st.Insert(context.Background(), cart.Table, cart.Line{
		ID: "remote-1", UserID: "user-1", ProductID: "p9", Quantity: 1,
		Name: "Pearl Necklace", Price: decimal.NewFromInt(40000),
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := svc.cart.Get("remote-1")
		return ok
	}, time.Second, time.Millisecond)
}

func TestFeedDuplicate_Converges(t *testing.T) {
	svc, st := newTestService(t)
	require.NoError(t, svc.AddToCart(context.Background(), testProduct("p1", "Eternal Gold Ring", 35000, 5)))
	line := svc.CartLines()[0]

	// Redeliver the insert event for the row we already hold.
	raw, err := json.Marshal(line)
	require.NoError(t, err)
	st.Emit(storeEvent(t, cart.Table, raw))

	assert.Eventually(t, func() bool { return len(svc.CartLines()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, svc.CartItemCount())
}

func TestOrderStatusFeedUpdate_CreatesNotification(t *testing.T) {
	svc, st := newTestService(t)
	require.NoError(t, svc.AddToCart(context.Background(), testProduct("p1", "Eternal Gold Ring", 35000, 5)))
	placed, err := svc.PlaceOrder(context.Background(), "card", testAddress("a1", true))
	require.NoError(t, err)

	// Back-office moves the order forward; the feed delivers the update.
	_, err = st.Update(context.Background(), order.Table, placed.ID, map[string]any{
		"status": string(order.StatusShipped),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(svc.Notifications()) == 1
	}, time.Second, time.Millisecond)

	n := svc.Notifications()[0]
	assert.Equal(t, placed.ID, n.OrderID)
	assert.Equal(t, order.StatusShipped, n.Status)
	assert.Equal(t, order.StatusPending, n.OldStatus)
	assert.Equal(t, 1, svc.UnreadNotificationCount())
	assert.Len(t, st.Rows(notification.Table), 1)
}

func TestOrderCreation_NoNotification(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.AddToCart(context.Background(), testProduct("p1", "Eternal Gold Ring", 35000, 5)))
	_, err := svc.PlaceOrder(context.Background(), "card", testAddress("a1", true))
	require.NoError(t, err)

	// Give the loop time to process the insert event.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, svc.Notifications())
}

// --- keyedMutex ---

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	var km keyedMutex

	unlockA := km.lock("a")
	unlockB := km.lock("b") // must not block
	unlockB()
	unlockA()

	// Entries are released once refs drop to zero.
	assert.Empty(t, km.locks)
}
