// Package notifier derives user notifications from order-status transitions
// observed on the change feed.
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/gleam-storefront/internal/domain/notification"
	"github.com/xenking/gleam-storefront/internal/domain/order"
	"github.com/xenking/gleam-storefront/internal/store"
)

// Notifier tracks the last-known status of every order for one user and
// inserts a notification into the remote store whenever an observed status
// differs from the tracked one. The insert is picked up by the session's own
// feed subscription; the notifier never touches local mirror state, so the
// notification appears locally exactly once.
//
// The feed is at-least-once: the same underlying transition can be delivered
// more than once. A seen-set keyed on (order, old status, new status) makes
// derivation at-most-once, closing the gap to exactly-once.
type Notifier struct {
	lg    *zap.Logger
	store store.Store

	mu   sync.Mutex
	last map[string]order.Status
	seen map[string]struct{}

	now   func() time.Time
	newID func() string
}

// New creates a Notifier writing notifications through st.
func New(lg *zap.Logger, st store.Store) *Notifier {
	return &Notifier{
		lg:    lg,
		store: st,
		last:  make(map[string]order.Status),
		seen:  make(map[string]struct{}),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Prime records the statuses of already-loaded orders without notifying.
// Called after the bulk load so that feed events replayed across the load
// boundary do not masquerade as fresh transitions.
func (n *Notifier) Prime(orders []order.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, o := range orders {
		n.last[o.ID] = o.Status
	}
}

// Observe inspects one order change event. Inserts establish the baseline
// status and never notify; updates notify on a changed status; deletes drop
// tracking state.
func (n *Notifier) Observe(ctx context.Context, kind store.EventKind, o order.Order) {
	switch kind {
	case store.EventInsert:
		n.mu.Lock()
		if _, ok := n.last[o.ID]; !ok {
			n.last[o.ID] = o.Status
		}
		n.mu.Unlock()

	case store.EventUpdate:
		n.observeUpdate(ctx, o)

	case store.EventDelete:
		n.mu.Lock()
		delete(n.last, o.ID)
		n.mu.Unlock()
	}
}

func (n *Notifier) observeUpdate(ctx context.Context, o order.Order) {
	n.mu.Lock()
	prev, tracked := n.last[o.ID]
	if !tracked {
		// Update for an order we never saw created: adopt the status as
		// baseline. The transition itself is unobservable.
		n.last[o.ID] = o.Status
		n.mu.Unlock()
		return
	}
	if prev == o.Status {
		n.mu.Unlock()
		return
	}
	key := o.ID + "|" + string(prev) + "|" + string(o.Status)
	if _, dup := n.seen[key]; dup {
		n.mu.Unlock()
		return
	}
	n.seen[key] = struct{}{}
	n.last[o.ID] = o.Status
	n.mu.Unlock()

	if err := n.insert(ctx, o, prev); err != nil {
		n.lg.Error("insert notification",
			zap.String("order_id", o.ID),
			zap.String("status", string(o.Status)),
			zap.Error(err),
		)
		// Forget the transition so a redelivered event can retry the
		// insert. The DB unique constraint absorbs any duplicate should
		// the failed write have landed after all.
		n.mu.Lock()
		delete(n.seen, key)
		if n.last[o.ID] == o.Status {
			n.last[o.ID] = prev
		}
		n.mu.Unlock()
	}
}

func (n *Notifier) insert(ctx context.Context, o order.Order, prev order.Status) error {
	row := notification.Notification{
		ID:          n.newID(),
		UserID:      o.UserID,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Message:     notification.StatusMessage(o.Status),
		Status:      o.Status,
		OldStatus:   prev,
		IsRead:      false,
		CreatedAt:   n.now(),
	}
	if _, err := n.store.Insert(ctx, notification.Table, row); err != nil {
		return errors.Wrap(err, "insert notification")
	}
	return nil
}
