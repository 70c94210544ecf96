package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/gleam-storefront/internal/domain/cart"
	"github.com/xenking/gleam-storefront/internal/domain/wishlist"
	"github.com/xenking/gleam-storefront/internal/shop"
)

// getCart returns the cart lines with the derived total and item count.
func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request, svc *shop.Service) {
	lines := svc.CartLines()
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range lines {
						h.encodeCartLine(e, lines[i])
					}
				})
			})
			e.Field("total", func(e *jx.Encoder) { e.Float64(svc.CartTotal().InexactFloat64()) })
			e.Field("count", func(e *jx.Encoder) { e.Int(svc.CartItemCount()) })
		})
	})
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	productID, err := decodeProductRef(r)
	if err != nil {
		failRequest(w, r, err)
		return
	}
	p, err := h.catalog.GetByID(r.Context(), productID)
	if err != nil {
		failRequest(w, r, err)
		return
	}
	if err := svc.AddToCart(r.Context(), p); err != nil {
		failRequest(w, r, err)
		return
	}
	h.getCart(w, r, svc)
}

func (h *Handler) setCartQuantity(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	var quantity int
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "quantity" {
				return d.Skip()
			}
			q, err := d.Int()
			quantity = q
			return err
		})
	})
	if err != nil {
		failRequest(w, r, err)
		return
	}
	if err := svc.SetCartQuantity(r.Context(), r.PathValue("productID"), quantity); err != nil {
		failRequest(w, r, err)
		return
	}
	h.getCart(w, r, svc)
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	if err := svc.RemoveFromCart(r.Context(), r.PathValue("productID")); err != nil {
		failRequest(w, r, err)
		return
	}
	h.getCart(w, r, svc)
}

// getWishlist returns the mirrored wishlist, oldest first.
func (h *Handler) getWishlist(w http.ResponseWriter, _ *http.Request, svc *shop.Service) {
	items := svc.WishlistItems()
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range items {
				h.encodeWishlistItem(e, items[i])
			}
		})
	})
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	productID, err := decodeProductRef(r)
	if err != nil {
		failRequest(w, r, err)
		return
	}
	p, err := h.catalog.GetByID(r.Context(), productID)
	if err != nil {
		failRequest(w, r, err)
		return
	}
	if err := svc.AddToWishlist(r.Context(), p); err != nil {
		failRequest(w, r, err)
		return
	}
	h.getWishlist(w, r, svc)
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	if err := svc.RemoveFromWishlist(r.Context(), r.PathValue("productID")); err != nil {
		failRequest(w, r, err)
		return
	}
	h.getWishlist(w, r, svc)
}

// decodeProductRef parses the {"product_id": ...} body shared by the cart and
// wishlist add endpoints.
func decodeProductRef(r *http.Request) (string, error) {
	var productID string
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "product_id" {
				return d.Skip()
			}
			id, err := d.Str()
			productID = id
			return err
		})
	})
	if err != nil {
		return "", err
	}
	if productID == "" {
		return "", errBadRequest
	}
	return productID, nil
}

func (h *Handler) encodeCartLine(e *jx.Encoder, l cart.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(l.ID) })
		e.Field("product_id", func(e *jx.Encoder) { e.Str(l.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
		e.Field("category", func(e *jx.Encoder) { e.Str(l.Category) })
		e.Field("price", func(e *jx.Encoder) { e.Float64(l.Price.InexactFloat64()) })
		e.Field("image", func(e *jx.Encoder) { e.Str(h.imageURL(l.ImageURL)) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("subtotal", func(e *jx.Encoder) { e.Float64(l.Subtotal().InexactFloat64()) })
		e.Field("added_at", func(e *jx.Encoder) { encodeTime(e, l.CreatedAt) })
	})
}

func (h *Handler) encodeWishlistItem(e *jx.Encoder, it wishlist.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(it.ID) })
		e.Field("product_id", func(e *jx.Encoder) { e.Str(it.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("category", func(e *jx.Encoder) { e.Str(it.Category) })
		e.Field("price", func(e *jx.Encoder) { e.Float64(it.Price.InexactFloat64()) })
		e.Field("image", func(e *jx.Encoder) { e.Str(h.imageURL(it.ImageURL)) })
		e.Field("added_at", func(e *jx.Encoder) { encodeTime(e, it.CreatedAt) })
	})
}
