package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gleam-storefront/internal/store"
)

// tableColumns whitelists the tables reachable through the generic store and
// the columns usable in patches and filters. Identifiers are interpolated
// into SQL, so everything must come from this registry.
var tableColumns = map[string]map[string]bool{
	"cart_items": {
		"id": true, "user_id": true, "product_id": true, "quantity": true,
		"product_name": true, "product_category": true, "product_price": true,
		"product_image": true, "created_at": true,
	},
	"wishlist_items": {
		"id": true, "user_id": true, "product_id": true,
		"product_name": true, "product_category": true, "product_price": true,
		"product_image": true, "created_at": true,
	},
	"addresses": {
		"id": true, "user_id": true, "recipient": true, "street": true,
		"city": true, "postal_code": true, "country": true, "phone": true,
		"is_default": true, "created_at": true,
	},
	"orders": {
		"id": true, "order_number": true, "user_id": true, "customer_name": true,
		"total": true, "status": true, "payment_method": true,
		"shipping_address": true, "placed_at": true,
	},
	"order_items": {
		"id": true, "order_id": true, "product_name": true,
		"quantity": true, "price": true,
	},
	"notifications": {
		"id": true, "user_id": true, "order_id": true, "order_number": true,
		"message": true, "status": true, "old_status": true,
		"is_read": true, "created_at": true,
	},
}

var _ store.Store = (*Store)(nil)

// Store implements store.Store on PostgreSQL. Rows travel as JSON in both
// directions: reads compose rows with row_to_json, writes decompose them
// with json_populate_record, so the generic interface needs no per-table
// scan code.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store using the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Query returns all rows of table matching f as JSON objects.
func (s *Store) Query(ctx context.Context, table string, f store.Filter) ([][]byte, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`SELECT row_to_json(t) FROM %s t`, table)
	var args []any
	if f.Field != "" {
		if err := checkColumn(table, f.Field); err != nil {
			return nil, err
		}
		q += fmt.Sprintf(` WHERE t.%s = $1`, f.Field)
		args = append(args, f.Value)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) ([]byte, error) {
		var raw []byte
		err := row.Scan(&raw)
		return raw, err
	})
}

// Insert decomposes the JSON-encoded row into table columns and returns the
// row as stored.
func (s *Store) Insert(ctx context.Context, table string, row any) ([]byte, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, errors.Wrap(err, "marshal row")
	}

	q := fmt.Sprintf(
		`INSERT INTO %s SELECT * FROM json_populate_record(NULL::%s, $1::json) RETURNING row_to_json(%s.*)`,
		table, table, table,
	)
	var stored []byte
	if err := s.pool.QueryRow(ctx, q, string(raw)).Scan(&stored); err != nil {
		return nil, fmt.Errorf("inserting into %s: %w", table, err)
	}
	return stored, nil
}

// Update applies the patch to the row with the given id and returns the
// merged row. Patch keys are validated against the column registry.
func (s *Store) Update(ctx context.Context, table, id string, patch map[string]any) ([]byte, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, errors.New("empty patch")
	}

	sets := make([]string, 0, len(patch))
	args := []any{id}
	for col, val := range patch {
		if err := checkColumn(table, col); err != nil {
			return nil, err
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	q := fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = $1 RETURNING row_to_json(%s.*)`,
		table, strings.Join(sets, ", "), table,
	)
	var stored []byte
	err := s.pool.QueryRow(ctx, q, args...).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNoRow
		}
		return nil, fmt.Errorf("updating %s %q: %w", table, id, err)
	}
	return stored, nil
}

// UpdateIf is Update guarded on a column value. The guard rides in the
// UPDATE's WHERE clause so check and write are a single statement; when no
// row matches, an existence probe distinguishes a missing row from a
// concurrent change.
func (s *Store) UpdateIf(ctx context.Context, table, id string, patch map[string]any, guard store.Filter) ([]byte, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, errors.New("empty patch")
	}
	if guard.Field == "" {
		return s.Update(ctx, table, id, patch)
	}
	if err := checkColumn(table, guard.Field); err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(patch))
	args := []any{id, guard.Value}
	for col, val := range patch {
		if err := checkColumn(table, col); err != nil {
			return nil, err
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	q := fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = $1 AND %s = $2 RETURNING row_to_json(%s.*)`,
		table, strings.Join(sets, ", "), guard.Field, table,
	)
	var stored []byte
	err := s.pool.QueryRow(ctx, q, args...).Scan(&stored)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("updating %s %q: %w", table, id, err)
	}

	var exists bool
	probe := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := s.pool.QueryRow(ctx, probe, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("probing %s %q: %w", table, id, err)
	}
	if exists {
		return nil, store.ErrConflict
	}
	return nil, store.ErrNoRow
}

// Delete removes the row with the given id.
func (s *Store) Delete(ctx context.Context, table, id string) error {
	if err := checkTable(table); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("deleting from %s %q: %w", table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNoRow
	}
	return nil
}

func checkTable(table string) error {
	if _, ok := tableColumns[table]; !ok {
		return errors.Errorf("table %q not registered", table)
	}
	return nil
}

func checkColumn(table, col string) error {
	if !tableColumns[table][col] {
		return errors.Errorf("column %q not registered for table %q", col, table)
	}
	return nil
}
