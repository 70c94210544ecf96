package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/gleam-storefront/internal/domain/identity"
)

const upsertUserSQL = `INSERT INTO users (id, display_name, email, avatar_url, last_seen_at)
	VALUES ($1, $2, $3, $4, now())
	ON CONFLICT (id) DO UPDATE
	SET display_name = EXCLUDED.display_name,
		email = EXCLUDED.email,
		avatar_url = EXCLUDED.avatar_url,
		last_seen_at = now()`

var _ identity.Repository = (*UserRepository)(nil)

// UserRepository maintains the shadow copy of auth-provider users.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Upsert records the identity, refreshing profile fields and last-seen time
// for known users.
func (r *UserRepository) Upsert(ctx context.Context, id *identity.Identity) error {
	_, err := r.pool.Exec(ctx, upsertUserSQL,
		id.ID, id.DisplayName, id.Email, id.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("upserting user %q: %w", id.ID, err)
	}
	return nil
}
