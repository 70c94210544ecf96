package shop

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/gleam-storefront/internal/domain/address"
)

// Addresses returns the mirrored address book, default address first.
func (s *Service) Addresses() []address.Address {
	return s.addresses.Snapshot()
}

// AddAddress inserts a new address. The user's first address becomes the
// default regardless of the requested flag; a later address requested as
// default demotes the current one. The address set is re-read afterwards so
// the mirror reflects the store's default-first ordering.
func (s *Service) AddAddress(ctx context.Context, f address.Fields) (*address.Address, error) {
	if s.id.ID == "" {
		return nil, ErrNotAuthenticated
	}

	makeDefault := s.addresses.Len() == 0 || f.IsDefault
	if makeDefault {
		if err := s.demoteDefaults(ctx); err != nil {
			return nil, err
		}
	}

	row := address.Address{
		ID:         s.newID(),
		UserID:     s.id.ID,
		Recipient:  f.Recipient,
		Street:     f.Street,
		City:       f.City,
		PostalCode: f.PostalCode,
		Country:    f.Country,
		Phone:      f.Phone,
		IsDefault:  makeDefault,
		CreatedAt:  s.now(),
	}
	stored, err := s.store.Insert(ctx, address.Table, row)
	if err != nil {
		return nil, errors.Wrap(err, "insert address")
	}
	added, err := decodeRow[address.Address](stored)
	if err != nil {
		return nil, errors.Wrap(err, "decode stored address")
	}

	if err := s.reloadAddresses(ctx); err != nil {
		return nil, err
	}
	return &added, nil
}

// UpdateAddress overwrites the mutable fields of an address. Requesting the
// default flag demotes the current default first.
func (s *Service) UpdateAddress(ctx context.Context, id string, f address.Fields) error {
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}
	if _, ok := s.addresses.Get(id); !ok {
		return errors.Wrapf(ErrAddressNotFound, "%s", id)
	}

	if f.IsDefault {
		if err := s.demoteDefaults(ctx); err != nil {
			return err
		}
	}

	_, err := s.store.Update(ctx, address.Table, id, map[string]any{
		"recipient":   f.Recipient,
		"street":      f.Street,
		"city":        f.City,
		"postal_code": f.PostalCode,
		"country":     f.Country,
		"phone":       f.Phone,
		"is_default":  f.IsDefault,
	})
	if err != nil {
		return errors.Wrap(err, "update address")
	}
	return s.reloadAddresses(ctx)
}

// DeleteAddress removes an address by id.
func (s *Service) DeleteAddress(ctx context.Context, id string) error {
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}
	if err := s.store.Delete(ctx, address.Table, id); err != nil {
		return errors.Wrap(err, "delete address")
	}
	s.addresses.Remove(id)
	return nil
}

// demoteDefaults clears the default flag on every currently-default address,
// keeping the at-most-one-default invariant ahead of a new default.
func (s *Service) demoteDefaults(ctx context.Context) error {
	for _, a := range s.addresses.Snapshot() {
		if !a.IsDefault {
			continue
		}
		if _, err := s.store.Update(ctx, address.Table, a.ID, map[string]any{
			"is_default": false,
		}); err != nil {
			return errors.Wrap(err, "demote default address")
		}
	}
	return nil
}

// reloadAddresses re-reads the address set from the store wholesale.
func (s *Service) reloadAddresses(ctx context.Context) error {
	if err := loadInto(ctx, s, address.Table, s.addresses); err != nil {
		return errors.Wrap(err, "reload addresses")
	}
	return nil
}
