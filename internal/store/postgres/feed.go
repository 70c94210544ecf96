package postgres

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/xenking/gleam-storefront/internal/store"
)

// changeChannel is the single NOTIFY channel all row-change triggers emit on.
const changeChannel = "gleam_changes"

// reconnectDelay paces reconnect attempts after a listener failure.
const reconnectDelay = time.Second

var _ store.Feed = (*Feed)(nil)

// Feed turns PostgreSQL LISTEN/NOTIFY into store.Feed. Row-change triggers
// publish {table, kind, row} JSON on one channel; a dedicated listening
// connection receives the stream and fans events out to subscriptions.
//
// Delivery is at-least-once from the consumer's perspective: after a
// reconnect, notifications sent while disconnected are lost, which is why
// sessions bulk-load before subscribing and mirrors apply idempotently.
type Feed struct {
	lg          *zap.Logger
	databaseURL string

	mu   sync.Mutex
	subs []*feedSub
}

// NewFeed creates a Feed. Call Run to start listening.
func NewFeed(lg *zap.Logger, databaseURL string) *Feed {
	return &Feed{lg: lg, databaseURL: databaseURL}
}

// Run listens for change notifications until ctx is cancelled, reconnecting
// on connection failure.
func (f *Feed) Run(ctx context.Context) error {
	for {
		err := f.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		f.lg.Warn("change feed disconnected", zap.Error(err))

		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (f *Feed) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, f.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
		return errors.Wrap(err, "listen")
	}
	f.lg.Info("change feed listening", zap.String("channel", changeChannel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return errors.Wrap(err, "wait for notification")
		}
		f.dispatch([]byte(n.Payload))
	}
}

// changePayload mirrors the JSON emitted by the notify_row_change trigger.
type changePayload struct {
	Table string          `json:"table"`
	Kind  string          `json:"kind"`
	Row   json.RawMessage `json:"row"`
}

func (f *Feed) dispatch(payload []byte) {
	var p changePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		f.lg.Warn("malformed change payload", zap.Error(err))
		return
	}

	var kind store.EventKind
	switch p.Kind {
	case "insert":
		kind = store.EventInsert
	case "update":
		kind = store.EventUpdate
	case "delete":
		kind = store.EventDelete
	default:
		f.lg.Warn("unknown change kind", zap.String("kind", p.Kind))
		return
	}

	ev := store.Event{Kind: kind, Table: p.Table, Row: p.Row}

	f.mu.Lock()
	subs := make([]*feedSub, 0, len(f.subs))
	for _, sub := range f.subs {
		if sub.matches(ev) {
			subs = append(subs, sub)
		}
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.handler(ev)
	}
}

// Subscribe registers a handler for changes on table matching filter.
func (f *Feed) Subscribe(table string, filter store.Filter, h store.Handler) (store.Subscription, error) {
	sub := &feedSub{feed: f, table: table, filter: filter, handler: h}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

type feedSub struct {
	feed    *Feed
	table   string
	filter  store.Filter
	handler store.Handler
}

func (s *feedSub) matches(ev store.Event) bool {
	if s.table != ev.Table {
		return false
	}
	if s.filter.Field == "" {
		return true
	}
	v, ok := store.Field(ev.Row, s.filter.Field)
	return ok && v == s.filter.Value
}

func (s *feedSub) Close() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	for i, sub := range s.feed.subs {
		if sub == s {
			s.feed.subs = append(s.feed.subs[:i], s.feed.subs[i+1:]...)
			return
		}
	}
}
