package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/gleam-storefront/internal/shop"
)

// getSession returns the signed-in profile plus the badge counters the UI
// shows in its chrome.
func (h *Handler) getSession(w http.ResponseWriter, _ *http.Request, svc *shop.Service) {
	id := svc.Identity()
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("user", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("id", func(e *jx.Encoder) { e.Str(id.ID) })
					e.Field("name", func(e *jx.Encoder) { e.Str(id.DisplayName) })
					e.Field("email", func(e *jx.Encoder) { e.Str(id.Email) })
					e.Field("avatar", func(e *jx.Encoder) { e.Str(id.AvatarURL) })
				})
			})
			e.Field("cart_count", func(e *jx.Encoder) { e.Int(svc.CartItemCount()) })
			e.Field("unread_notifications", func(e *jx.Encoder) { e.Int(svc.UnreadNotificationCount()) })
		})
	})
}

// signOut detaches the session, clearing all mirrored state before the
// response is written.
func (h *Handler) signOut(w http.ResponseWriter, _ *http.Request, svc *shop.Service) {
	h.sessions.Detach(svc.Identity().ID)
	w.WriteHeader(http.StatusNoContent)
}
