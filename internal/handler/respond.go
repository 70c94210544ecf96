package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/gleam-storefront/internal/admin"
	"github.com/xenking/gleam-storefront/internal/domain/catalog"
	"github.com/xenking/gleam-storefront/internal/domain/identity"
	"github.com/xenking/gleam-storefront/internal/domain/order"
	"github.com/xenking/gleam-storefront/internal/shop"
	"github.com/xenking/gleam-storefront/internal/store"
)

// maxBodySize caps request bodies. Storefront payloads are tiny; anything
// bigger is abuse.
const maxBodySize = 1 << 20

// respond writes a JSON response built by fill.
func respond(w http.ResponseWriter, code int, fill func(e *jx.Encoder)) {
	var e jx.Encoder
	fill(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// respondError writes the canonical error body {code, message}.
func respondError(w http.ResponseWriter, code int, msg string) {
	respond(w, code, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(code) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

// failRequest maps a domain error onto an HTTP status. Errors with no mapping
// are treated as remote-store failures: logged and reported as 502 so the
// client can retry.
func failRequest(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusBadGateway {
		zctx.From(r.Context()).Error("remote store failure",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		respondError(w, code, "remote store unavailable")
		return
	}
	respondError(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shop.ErrNotAuthenticated), errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, shop.ErrDuplicateItem), errors.Is(err, shop.ErrOutOfStock),
		errors.Is(err, order.ErrBackwardTransition):
		return http.StatusConflict
	case errors.Is(err, shop.ErrEmptyCart), errors.Is(err, admin.ErrInvalidProduct),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, shop.ErrAddressNotFound), errors.Is(err, admin.ErrOrderNotFound),
		errors.Is(err, catalog.ErrNotFound), errors.Is(err, store.ErrNoRow):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// errBadRequest marks malformed request payloads.
var errBadRequest = errors.New("bad request")

// decodeBody reads the request body and decodes it with parse.
func decodeBody(r *http.Request, parse func(d *jx.Decoder) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(errBadRequest, "read body")
	}
	d := jx.DecodeBytes(body)
	if err := parse(d); err != nil {
		return errors.Wrapf(errBadRequest, "decode body: %s", err)
	}
	return nil
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}
