// Package storetest provides an in-memory store.Store and store.Feed with
// synchronous event delivery, used by unit tests in place of the hosted
// backend.
package storetest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/gleam-storefront/internal/store"
)

// Store is an in-memory remote store. Every successful write emits a change
// event to matching subscribers before the write call returns, which makes
// feed/write interleavings deterministic in tests.
type Store struct {
	mu     sync.Mutex
	tables map[string]map[string][]byte
	subs   []*subscription

	// Per-table error injection. A non-nil entry fails the next matching
	// operation on that table and is then cleared.
	insertErr map[string]error
	updateErr map[string]error
	deleteErr map[string]error
	queryErr  map[string]error
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Feed  = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		tables:    make(map[string]map[string][]byte),
		insertErr: make(map[string]error),
		updateErr: make(map[string]error),
		deleteErr: make(map[string]error),
		queryErr:  make(map[string]error),
	}
}

// FailNextInsert makes the next Insert into table fail with err.
func (s *Store) FailNextInsert(table string, err error) {
	s.mu.Lock()
	s.insertErr[table] = err
	s.mu.Unlock()
}

// FailNextUpdate makes the next Update on table fail with err.
func (s *Store) FailNextUpdate(table string, err error) {
	s.mu.Lock()
	s.updateErr[table] = err
	s.mu.Unlock()
}

// FailNextDelete makes the next Delete on table fail with err.
func (s *Store) FailNextDelete(table string, err error) {
	s.mu.Lock()
	s.deleteErr[table] = err
	s.mu.Unlock()
}

// FailNextQuery makes the next Query on table fail with err.
func (s *Store) FailNextQuery(table string, err error) {
	s.mu.Lock()
	s.queryErr[table] = err
	s.mu.Unlock()
}

// Query returns all rows of table matching f.
func (s *Store) Query(_ context.Context, table string, f store.Filter) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := takeErr(s.queryErr, table); err != nil {
		return nil, err
	}

	var out [][]byte
	for _, row := range s.tables[table] {
		if matches(row, f) {
			out = append(out, row)
		}
	}
	return out, nil
}

// Insert stores the row and emits an Insert event.
func (s *Store) Insert(_ context.Context, table string, row any) ([]byte, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, errors.Wrap(err, "marshal row")
	}
	id, err := store.RowID(raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if err := takeErr(s.insertErr, table); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.tables[table] == nil {
		s.tables[table] = make(map[string][]byte)
	}
	s.tables[table][id] = raw
	subs := s.matchingSubs(table, raw)
	s.mu.Unlock()

	dispatch(subs, store.Event{Kind: store.EventInsert, Table: table, Row: raw})
	return raw, nil
}

// Update merges patch into the stored row and emits an Update event.
func (s *Store) Update(_ context.Context, table, id string, patch map[string]any) ([]byte, error) {
	s.mu.Lock()
	if err := takeErr(s.updateErr, table); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	raw, ok := s.tables[table][id]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrNoRow
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		s.mu.Unlock()
		return nil, errors.Wrap(err, "decode stored row")
	}
	for k, v := range patch {
		obj[k] = v
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		s.mu.Unlock()
		return nil, errors.Wrap(err, "encode merged row")
	}
	s.tables[table][id] = merged
	subs := s.matchingSubs(table, merged)
	s.mu.Unlock()

	dispatch(subs, store.Event{Kind: store.EventUpdate, Table: table, Row: merged})
	return merged, nil
}

// UpdateIf merges patch into the stored row only while the guard field still
// matches, emitting an Update event on success. Shares Update's error
// injection.
func (s *Store) UpdateIf(_ context.Context, table, id string, patch map[string]any, guard store.Filter) ([]byte, error) {
	s.mu.Lock()
	if err := takeErr(s.updateErr, table); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	raw, ok := s.tables[table][id]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrNoRow
	}
	if !matches(raw, guard) {
		s.mu.Unlock()
		return nil, store.ErrConflict
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		s.mu.Unlock()
		return nil, errors.Wrap(err, "decode stored row")
	}
	for k, v := range patch {
		obj[k] = v
	}
	merged, err := json.Marshal(obj)
	if err != nil {
		s.mu.Unlock()
		return nil, errors.Wrap(err, "encode merged row")
	}
	s.tables[table][id] = merged
	subs := s.matchingSubs(table, merged)
	s.mu.Unlock()

	dispatch(subs, store.Event{Kind: store.EventUpdate, Table: table, Row: merged})
	return merged, nil
}

// Delete removes the row and emits a Delete event carrying the old row.
func (s *Store) Delete(_ context.Context, table, id string) error {
	s.mu.Lock()
	if err := takeErr(s.deleteErr, table); err != nil {
		s.mu.Unlock()
		return err
	}
	raw, ok := s.tables[table][id]
	if !ok {
		s.mu.Unlock()
		return store.ErrNoRow
	}
	delete(s.tables[table], id)
	subs := s.matchingSubs(table, raw)
	s.mu.Unlock()

	dispatch(subs, store.Event{Kind: store.EventDelete, Table: table, Row: raw})
	return nil
}

// Emit injects a raw event, bypassing storage. Tests use it to simulate
// duplicate or out-of-order feed delivery.
func (s *Store) Emit(ev store.Event) {
	s.mu.Lock()
	subs := s.matchingSubs(ev.Table, ev.Row)
	s.mu.Unlock()
	dispatch(subs, ev)
}

// Rows returns a copy of all rows currently stored in table.
func (s *Store) Rows(table string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, 0, len(s.tables[table]))
	for _, row := range s.tables[table] {
		out = append(out, row)
	}
	return out
}

type subscription struct {
	owner   *Store
	table   string
	filter  store.Filter
	handler store.Handler
	closed  bool
}

func (sub *subscription) Close() {
	sub.owner.mu.Lock()
	sub.closed = true
	sub.owner.mu.Unlock()
}

// Subscribe registers a handler for changes on table matching f.
func (s *Store) Subscribe(table string, f store.Filter, h store.Handler) (store.Subscription, error) {
	sub := &subscription{owner: s, table: table, filter: f, handler: h}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return sub, nil
}

// matchingSubs must be called with s.mu held.
func (s *Store) matchingSubs(table string, row []byte) []*subscription {
	var out []*subscription
	for _, sub := range s.subs {
		if sub.closed || sub.table != table {
			continue
		}
		if matches(row, sub.filter) {
			out = append(out, sub)
		}
	}
	return out
}

func dispatch(subs []*subscription, ev store.Event) {
	for _, sub := range subs {
		sub.handler(ev)
	}
}

func matches(row []byte, f store.Filter) bool {
	if f.Field == "" {
		return true
	}
	v, ok := store.Field(row, f.Field)
	return ok && v == f.Value
}

func takeErr(m map[string]error, table string) error {
	err := m[table]
	if err != nil {
		delete(m, table)
	}
	return err
}
