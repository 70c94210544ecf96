// Package provider resolves bearer tokens against the hosted auth provider's
// session-introspection endpoint. The provider itself is external; this
// client only maps its profile payload onto identity.Identity.
package provider

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/gleam-storefront/internal/domain/identity"
)

// cacheTTL bounds how long a verified token is trusted without a round trip.
// Short enough that a revoked session dies quickly, long enough that one page
// load does not hit the provider per request.
const cacheTTL = 30 * time.Second

type cached struct {
	id      identity.Identity
	expires time.Time
}

// Verifier implements identity.Verifier over HTTP with a small TTL cache.
type Verifier struct {
	endpoint string
	client   *http.Client

	mu    sync.Mutex
	cache map[string]cached

	now func() time.Time
}

var _ identity.Verifier = (*Verifier)(nil)

// NewVerifier creates a Verifier hitting the given session-introspection
// endpoint. The transport is instrumented for tracing.
func NewVerifier(endpoint string) *Verifier {
	return &Verifier{
		endpoint: endpoint,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   5 * time.Second,
		},
		cache: make(map[string]cached),
		now:   time.Now,
	}
}

// Verify resolves token to an identity, reusing a cached result when fresh.
func (v *Verifier) Verify(ctx context.Context, token string) (*identity.Identity, error) {
	v.mu.Lock()
	if c, ok := v.cache[token]; ok && v.now().Before(c.expires) {
		v.mu.Unlock()
		id := c.id
		return &id, nil
	}
	v.mu.Unlock()

	id, err := v.introspect(ctx, token)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.cache[token] = cached{id: *id, expires: v.now().Add(cacheTTL)}
	// Expired entries pile up only as fast as distinct tokens arrive; sweep
	// them while we hold the lock anyway.
	for t, c := range v.cache {
		if v.now().After(c.expires) {
			delete(v.cache, t)
		}
	}
	v.mu.Unlock()

	return id, nil
}

func (v *Verifier) introspect(ctx context.Context, token string) (*identity.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build introspection request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call auth provider")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, identity.ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Errorf("auth provider returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read provider response")
	}

	var id identity.Identity
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			id.ID, err = d.Str()
		case "name":
			id.DisplayName, err = d.Str()
		case "email":
			id.Email, err = d.Str()
		case "avatar":
			id.AvatarURL, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode provider response")
	}
	if id.ID == "" {
		return nil, identity.ErrInvalidToken
	}
	return &id, nil
}
