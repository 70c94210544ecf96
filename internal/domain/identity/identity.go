package identity

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrInvalidToken is returned when a session token cannot be verified.
var ErrInvalidToken = errors.New("invalid session token")

// Identity is the authenticated user principal associated with a session.
// It is issued by the external auth provider; this package only carries it.
type Identity struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
}

// Verifier resolves a bearer session token to an Identity.
//
// The reference implementation delegates to whatever auth provider the
// deployment uses; it returns ErrInvalidToken for tokens it cannot resolve.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Repository persists a shadow copy of known users so that per-user rows
// (orders, notifications) can reference them.
type Repository interface {
	// Upsert records the identity, updating profile fields and the
	// last-seen timestamp when the user already exists.
	Upsert(ctx context.Context, id *Identity) error
}
