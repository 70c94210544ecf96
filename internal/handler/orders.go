package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/gleam-storefront/internal/domain/address"
	"github.com/xenking/gleam-storefront/internal/domain/order"
	"github.com/xenking/gleam-storefront/internal/shop"
)

func (h *Handler) listOrders(w http.ResponseWriter, _ *http.Request, svc *shop.Service) {
	orders := svc.Orders()
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, orders[i])
			}
		})
	})
}

func (h *Handler) orderLines(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	lines, err := svc.OrderLines(r.Context(), r.PathValue("id"))
	if err != nil {
		failRequest(w, r, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range lines {
				encodeOrderLine(e, lines[i])
			}
		})
	})
}

// placeOrder converts the cart into an order. The shipping address is
// referenced by id and must belong to the session's address book.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	var paymentMethod, addressID string
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "payment_method":
				paymentMethod, err = d.Str()
			case "address_id":
				addressID, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		})
	})
	if err != nil {
		failRequest(w, r, err)
		return
	}
	if paymentMethod == "" {
		failRequest(w, r, errBadRequest)
		return
	}

	ship, ok := findAddress(svc, addressID)
	if !ok {
		failRequest(w, r, shop.ErrAddressNotFound)
		return
	}

	placed, err := svc.PlaceOrder(r.Context(), paymentMethod, ship)
	if err != nil {
		failRequest(w, r, err)
		return
	}
	respond(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, *placed)
	})
}

// findAddress resolves the shipping address: by id when given, the default
// (first-sorted) address otherwise.
func findAddress(svc *shop.Service, id string) (address.Address, bool) {
	addrs := svc.Addresses()
	if id == "" {
		if len(addrs) == 0 {
			return address.Address{}, false
		}
		return addrs[0], true
	}
	for _, a := range addrs {
		if a.ID == id {
			return a, true
		}
	}
	return address.Address{}, false
}

func encodeOrder(e *jx.Encoder, o order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("order_number", func(e *jx.Encoder) { e.Str(o.OrderNumber) })
		e.Field("customer_name", func(e *jx.Encoder) { e.Str(o.CustomerName) })
		e.Field("total", func(e *jx.Encoder) { e.Float64(o.Total.InexactFloat64()) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("payment_method", func(e *jx.Encoder) { e.Str(o.PaymentMethod) })
		e.Field("shipping_address", func(e *jx.Encoder) { e.Str(o.ShippingAddress) })
		e.Field("placed_at", func(e *jx.Encoder) { encodeTime(e, o.PlacedAt) })
	})
}

func encodeOrderLine(e *jx.Encoder, l order.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(l.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("price", func(e *jx.Encoder) { e.Float64(l.UnitPrice.InexactFloat64()) })
		e.Field("subtotal", func(e *jx.Encoder) { e.Float64(l.Subtotal().InexactFloat64()) })
	})
}
