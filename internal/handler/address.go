package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/gleam-storefront/internal/domain/address"
	"github.com/xenking/gleam-storefront/internal/shop"
)

func (h *Handler) listAddresses(w http.ResponseWriter, _ *http.Request, svc *shop.Service) {
	addrs := svc.Addresses()
	respond(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range addrs {
				encodeAddress(e, addrs[i])
			}
		})
	})
}

func (h *Handler) addAddress(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	fields, err := decodeAddressFields(r)
	if err != nil {
		failRequest(w, r, err)
		return
	}
	added, err := svc.AddAddress(r.Context(), fields)
	if err != nil {
		failRequest(w, r, err)
		return
	}
	respond(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeAddress(e, *added)
	})
}

func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	fields, err := decodeAddressFields(r)
	if err != nil {
		failRequest(w, r, err)
		return
	}
	if err := svc.UpdateAddress(r.Context(), r.PathValue("id"), fields); err != nil {
		failRequest(w, r, err)
		return
	}
	h.listAddresses(w, r, svc)
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request, svc *shop.Service) {
	if err := svc.DeleteAddress(r.Context(), r.PathValue("id")); err != nil {
		failRequest(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeAddressFields(r *http.Request) (address.Fields, error) {
	var f address.Fields
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "recipient":
				f.Recipient, err = d.Str()
			case "street":
				f.Street, err = d.Str()
			case "city":
				f.City, err = d.Str()
			case "postal_code":
				f.PostalCode, err = d.Str()
			case "country":
				f.Country, err = d.Str()
			case "phone":
				f.Phone, err = d.Str()
			case "is_default":
				f.IsDefault, err = d.Bool()
			default:
				err = d.Skip()
			}
			return err
		})
	})
	if err != nil {
		return address.Fields{}, err
	}
	if f.Recipient == "" || f.Street == "" || f.City == "" {
		return address.Fields{}, errBadRequest
	}
	return f, nil
}

func encodeAddress(e *jx.Encoder, a address.Address) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(a.ID) })
		e.Field("recipient", func(e *jx.Encoder) { e.Str(a.Recipient) })
		e.Field("street", func(e *jx.Encoder) { e.Str(a.Street) })
		e.Field("city", func(e *jx.Encoder) { e.Str(a.City) })
		e.Field("postal_code", func(e *jx.Encoder) { e.Str(a.PostalCode) })
		e.Field("country", func(e *jx.Encoder) { e.Str(a.Country) })
		e.Field("phone", func(e *jx.Encoder) { e.Str(a.Phone) })
		e.Field("is_default", func(e *jx.Encoder) { e.Bool(a.IsDefault) })
	})
}
