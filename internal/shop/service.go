// Package shop implements the per-identity storefront synchronizer: five
// in-memory collections mirroring the remote store, the mutation pipeline
// operating on them, and the derived aggregates exposed to the UI layer.
package shop

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/gleam-storefront/internal/domain/address"
	"github.com/xenking/gleam-storefront/internal/domain/cart"
	"github.com/xenking/gleam-storefront/internal/domain/identity"
	"github.com/xenking/gleam-storefront/internal/domain/notification"
	"github.com/xenking/gleam-storefront/internal/domain/order"
	"github.com/xenking/gleam-storefront/internal/domain/wishlist"
	"github.com/xenking/gleam-storefront/internal/mirror"
	"github.com/xenking/gleam-storefront/internal/notifier"
	"github.com/xenking/gleam-storefront/internal/store"
)

// Sentinel errors surfaced by the mutation pipeline.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrDuplicateItem    = errors.New("item already in wishlist")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrOutOfStock       = errors.New("product is out of stock")
	ErrAddressNotFound  = errors.New("address not found")
)

// eventBuffer sizes the feed channel. The loop drains quickly (map upserts),
// so the buffer only needs to absorb bursts around the bulk-load race.
const eventBuffer = 256

// Service synchronizes one identity's cart, wishlist, addresses, orders and
// notifications with the remote store.
//
// All remote change events are funneled through a single buffered channel and
// applied by one loop goroutine, so mirror application and notification
// derivation never run concurrently with each other. Mutations execute on the
// caller's goroutine and patch the mirror immediately from the write result;
// the matching feed event is an idempotent reconciliation upsert.
type Service struct {
	lg    *zap.Logger
	store store.Store
	feed  store.Feed
	id    identity.Identity

	cart          *mirror.Collection[cart.Line]
	wishlist      *mirror.Collection[wishlist.Item]
	addresses     *mirror.Collection[address.Address]
	orders        *mirror.Collection[order.Order]
	notifications *mirror.Collection[notification.Notification]

	notifier *notifier.Notifier

	events    chan store.Event
	quit      chan struct{}
	subs      []store.Subscription
	loopDone  chan struct{}
	closeOnce sync.Once

	cartLocks keyedMutex

	now   func() time.Time
	newID func() string
}

// New creates a Service bound to the given identity. Call Start to load
// state and begin consuming the change feed.
func New(lg *zap.Logger, st store.Store, feed store.Feed, id identity.Identity) *Service {
	return &Service{
		lg:    lg.With(zap.String("user_id", id.ID)),
		store: st,
		feed:  feed,
		id:    id,

		cart:          mirror.New(func(a, b cart.Line) bool { return a.CreatedAt.Before(b.CreatedAt) }),
		wishlist:      mirror.New(func(a, b wishlist.Item) bool { return a.CreatedAt.Before(b.CreatedAt) }),
		addresses:     mirror.New(addressOrder),
		orders:        mirror.New(func(a, b order.Order) bool { return a.PlacedAt.After(b.PlacedAt) }),
		notifications: mirror.New(func(a, b notification.Notification) bool { return a.CreatedAt.After(b.CreatedAt) }),

		notifier: notifier.New(lg, st),

		events:   make(chan store.Event, eventBuffer),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),

		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// addressOrder sorts the default address first, then oldest first.
func addressOrder(a, b address.Address) bool {
	if a.IsDefault != b.IsDefault {
		return a.IsDefault
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// Identity returns the identity this service is bound to.
func (s *Service) Identity() identity.Identity { return s.id }

// Start performs the initial bulk load of all five collections and opens the
// change-feed subscriptions. A load failure of one collection logs and leaves
// that collection empty instead of failing the session.
func (s *Service) Start(ctx context.Context) error {
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}

	// No shared cancel context here: one table failing must not abort the
	// sibling loads, only leave its own collection empty.
	var g errgroup.Group
	g.Go(func() error { return loadInto(ctx, s, cart.Table, s.cart) })
	g.Go(func() error { return loadInto(ctx, s, wishlist.Table, s.wishlist) })
	g.Go(func() error { return loadInto(ctx, s, address.Table, s.addresses) })
	g.Go(func() error { return loadInto(ctx, s, order.Table, s.orders) })
	g.Go(func() error { return loadInto(ctx, s, notification.Table, s.notifications) })
	if err := g.Wait(); err != nil {
		// Degrade instead of failing the session: affected collections
		// stay empty and the UI offers a retry.
		s.lg.Error("initial load incomplete", zap.Error(err))
	}

	s.notifier.Prime(s.orders.Snapshot())

	for _, table := range []string{cart.Table, wishlist.Table, address.Table, order.Table, notification.Table} {
		sub, err := s.feed.Subscribe(table, store.ByUser(s.id.ID), func(ev store.Event) {
			select {
			case s.events <- ev:
			default:
				// Feed pressure beyond the buffer: drop and log. The mirror
				// self-heals on the next event for the same row.
				s.lg.Warn("feed event dropped", zap.String("table", ev.Table))
			}
		})
		if err != nil {
			s.closeSubs()
			// The loop never starts on this path; close loopDone so a
			// later Close does not wait on it forever.
			close(s.loopDone)
			return errors.Wrapf(err, "subscribe %s", table)
		}
		s.subs = append(s.subs, sub)
	}

	go s.run()
	return nil
}

// Close tears down subscriptions, stops the event loop, and clears all five
// collections. Safe to call more than once. After Close no stale state is
// observable; a new session for another identity starts from scratch.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		s.closeSubs()
		close(s.quit)
		<-s.loopDone

		s.cart.Clear()
		s.wishlist.Clear()
		s.addresses.Clear()
		s.orders.Clear()
		s.notifications.Clear()
	})
}

func (s *Service) closeSubs() {
	for _, sub := range s.subs {
		sub.Close()
	}
	s.subs = nil
}

// run is the single event-loop goroutine. Buffered events still in flight at
// Close are discarded; the mirrors are cleared right after anyway.
func (s *Service) run() {
	defer close(s.loopDone)
	for {
		select {
		case ev := <-s.events:
			s.apply(ev)
		case <-s.quit:
			return
		}
	}
}

// apply routes one feed event into the matching mirror. Rows are decoded and
// validated here, at the boundary; malformed rows are logged and dropped.
func (s *Service) apply(ev store.Event) {
	switch ev.Table {
	case cart.Table:
		applyTo(s, ev, s.cart)
	case wishlist.Table:
		applyTo(s, ev, s.wishlist)
	case address.Table:
		applyTo(s, ev, s.addresses)
	case order.Table:
		s.applyOrder(ev)
	case notification.Table:
		applyTo(s, ev, s.notifications)
	default:
		s.lg.Warn("event for unknown table", zap.String("table", ev.Table))
	}
}

// applyOrder applies an order event and feeds it to the notifier. The
// notifier write goes through the remote store; the resulting notification
// row arrives back on this very loop as a notifications-table insert.
func (s *Service) applyOrder(ev store.Event) {
	o, err := decodeRow[order.Order](ev.Row)
	if err != nil {
		s.lg.Warn("malformed order row", zap.Error(err))
		return
	}
	switch ev.Kind {
	case store.EventInsert, store.EventUpdate:
		s.orders.Upsert(o)
	case store.EventDelete:
		s.orders.Remove(o.ID)
	}
	s.notifier.Observe(context.Background(), ev.Kind, o)
}

// applyTo decodes the event row and applies it to coll with upsert/delete
// semantics.
func applyTo[T mirror.Row](s *Service, ev store.Event, coll *mirror.Collection[T]) {
	row, err := decodeRow[T](ev.Row)
	if err != nil {
		s.lg.Warn("malformed row",
			zap.String("table", ev.Table),
			zap.Stringer("kind", ev.Kind),
			zap.Error(err),
		)
		return
	}
	switch ev.Kind {
	case store.EventInsert, store.EventUpdate:
		coll.Upsert(row)
	case store.EventDelete:
		coll.Remove(row.RowID())
	}
}

// loadInto bulk-reads one per-user table and replaces the collection.
func loadInto[T mirror.Row](ctx context.Context, s *Service, table string, coll *mirror.Collection[T]) error {
	raws, err := s.store.Query(ctx, table, store.ByUser(s.id.ID))
	if err != nil {
		return errors.Wrapf(err, "load %s", table)
	}
	rows := make([]T, 0, len(raws))
	for _, raw := range raws {
		row, err := decodeRow[T](raw)
		if err != nil {
			s.lg.Warn("malformed row skipped", zap.String("table", table), zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}
	coll.Replace(rows)
	return nil
}

// decodeRow converts a raw JSON row into its entity type, rejecting rows
// without an id.
func decodeRow[T mirror.Row](raw []byte) (T, error) {
	var row T
	if err := json.Unmarshal(raw, &row); err != nil {
		return row, errors.Wrap(err, "decode row")
	}
	if row.RowID() == "" {
		return row, errors.New("row has no id")
	}
	return row, nil
}

// keyedMutex serializes operations per string key. Used to keep rapid
// quantity adjustments on the same cart line from interleaving.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*lockEntry)
	}
	e := k.locks[key]
	if e == nil {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
