package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/gleam-storefront/internal/domain/catalog"
	"github.com/xenking/gleam-storefront/internal/domain/order"
)

// adminListOrders returns every order across all users.
func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.admin.ListOrders(r.Context())
	if err != nil {
		failRequest(w, r, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, orders[i])
			}
		})
	})
}

func (h *Handler) adminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var status string
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "status" {
				return d.Skip()
			}
			s, err := d.Str()
			status = s
			return err
		})
	})
	if err != nil {
		failRequest(w, r, err)
		return
	}
	if !order.Status(status).Known() {
		failRequest(w, r, errBadRequest)
		return
	}

	updated, err := h.admin.UpdateOrderStatus(r.Context(), r.PathValue("id"), order.Status(status))
	if err != nil {
		failRequest(w, r, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, *updated)
	})
}

// adminListProducts returns the catalog including inactive products.
func (h *Handler) adminListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.admin.ListProducts(r.Context())
	if err != nil {
		failRequest(w, r, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range products {
				encodeAdminProduct(e, &products[i])
			}
		})
	})
}

func (h *Handler) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	p, err := decodeProduct(r)
	if err != nil {
		failRequest(w, r, err)
		return
	}
	if err := h.admin.CreateProduct(r.Context(), p); err != nil {
		failRequest(w, r, err)
		return
	}
	respond(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeAdminProduct(e, p)
	})
}

func (h *Handler) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	p, err := decodeProduct(r)
	if err != nil {
		failRequest(w, r, err)
		return
	}
	p.ID = r.PathValue("id")
	if err := h.admin.UpdateProduct(r.Context(), p); err != nil {
		failRequest(w, r, err)
		return
	}
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodeAdminProduct(e, p)
	})
}

func (h *Handler) adminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		failRequest(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeProduct(r *http.Request) (*catalog.Product, error) {
	p := &catalog.Product{Active: true}
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "name":
				p.Name, err = d.Str()
			case "category":
				p.Category, err = d.Str()
			case "price":
				var f float64
				f, err = d.Float64()
				p.Price = decimal.NewFromFloat(f)
			case "image":
				p.ImageURL, err = d.Str()
			case "active":
				p.Active, err = d.Bool()
			case "stock_quantity":
				p.StockQuantity, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// encodeAdminProduct includes the active flag, which the storefront view
// never exposes.
func encodeAdminProduct(e *jx.Encoder, p *catalog.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("price", func(e *jx.Encoder) { e.Float64(p.Price.InexactFloat64()) })
		e.Field("image", func(e *jx.Encoder) { e.Str(p.ImageURL) })
		e.Field("active", func(e *jx.Encoder) { e.Bool(p.Active) })
		e.Field("stock_quantity", func(e *jx.Encoder) { e.Int(p.StockQuantity) })
	})
}
