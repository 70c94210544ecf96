package auth

import "context"

// APIKeyInfo describes a stored back-office API key. The key itself is never
// stored; only its HMAC-SHA256 hash.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository defines lookup operations for back-office API keys.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
