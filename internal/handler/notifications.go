package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/gleam-storefront/internal/domain/notification"
	"github.com/xenking/gleam-storefront/internal/shop"
)

func (h *Handler) listNotifications(w http.ResponseWriter, _ *http.Request, svc *shop.Service) {
	items := svc.Notifications()
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range items {
						encodeNotification(e, items[i])
					}
				})
			})
			e.Field("unread", func(e *jx.Encoder) { e.Int(svc.UnreadNotificationCount()) })
		})
	})
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	if err := svc.MarkNotificationRead(r.Context(), r.PathValue("id")); err != nil {
		failRequest(w, r, err)
		return
	}
	h.listNotifications(w, r, svc)
}

func (h *Handler) markAllNotificationsRead(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	if err := svc.MarkAllNotificationsRead(r.Context()); err != nil {
		failRequest(w, r, err)
		return
	}
	h.listNotifications(w, r, svc)
}

func (h *Handler) deleteNotification(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	if err := svc.DeleteNotification(r.Context(), r.PathValue("id")); err != nil {
		failRequest(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearNotifications(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	if err := svc.ClearNotifications(r.Context()); err != nil {
		failRequest(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func encodeNotification(e *jx.Encoder, n notification.Notification) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(n.ID) })
		e.Field("order_id", func(e *jx.Encoder) { e.Str(n.OrderID) })
		e.Field("order_number", func(e *jx.Encoder) { e.Str(n.OrderNumber) })
		e.Field("message", func(e *jx.Encoder) { e.Str(n.Message) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(n.Status)) })
		e.Field("is_read", func(e *jx.Encoder) { e.Bool(n.IsRead) })
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, n.CreatedAt) })
	})
}
