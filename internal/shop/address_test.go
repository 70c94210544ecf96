package shop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/gleam-storefront/internal/domain/address"
)

func testFields(recipient string, isDefault bool) address.Fields {
	return address.Fields{
		Recipient:  recipient,
		Street:     "12 Marine Drive",
		City:       "Mumbai",
		PostalCode: "400001",
		Country:    "India",
		IsDefault:  isDefault,
	}
}

func TestAddAddress_FirstBecomesDefault(t *testing.T) {
	svc, _ := newTestService(t)

	// The default flag was not requested, but the first address gets it.
	added, err := svc.AddAddress(context.Background(), testFields("Ava Chen", false))
	require.NoError(t, err)
	assert.True(t, added.IsDefault)

	addrs := svc.Addresses()
	require.Len(t, addrs, 1)
	assert.True(t, addrs[0].IsDefault)
}

func TestAddAddress_RequestedDefaultDemotesCurrent(t *testing.T) {
	svc, _ := newTestService(t)
	first, err := svc.AddAddress(context.Background(), testFields("Ava Chen", false))
	require.NoError(t, err)

	second, err := svc.AddAddress(context.Background(), testFields("Ava Chen (office)", true))
	require.NoError(t, err)
	assert.True(t, second.IsDefault)

	addrs := svc.Addresses()
	require.Len(t, addrs, 2)
	var defaults int
	for _, a := range addrs {
		if a.IsDefault {
			defaults++
			assert.Equal(t, second.ID, a.ID)
		} else {
			assert.Equal(t, first.ID, a.ID)
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestAddAddress_SecondNonDefaultKeepsFirst(t *testing.T) {
	svc, _ := newTestService(t)
	first, err := svc.AddAddress(context.Background(), testFields("Ava Chen", false))
	require.NoError(t, err)

	second, err := svc.AddAddress(context.Background(), testFields("Ava Chen (office)", false))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	// Default-first ordering puts the original default on top.
	addrs := svc.Addresses()
	require.Len(t, addrs, 2)
	assert.Equal(t, first.ID, addrs[0].ID)
}

func TestUpdateAddress_PromoteToDefault(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddAddress(context.Background(), testFields("Ava Chen", false))
	require.NoError(t, err)
	second, err := svc.AddAddress(context.Background(), testFields("Ava Chen (office)", false))
	require.NoError(t, err)

	require.NoError(t, svc.UpdateAddress(context.Background(), second.ID, testFields("Ava Chen (office)", true)))

	addrs := svc.Addresses()
	require.Len(t, addrs, 2)
	assert.Equal(t, second.ID, addrs[0].ID)
	assert.True(t, addrs[0].IsDefault)
	assert.False(t, addrs[1].IsDefault)
}

func TestUpdateAddress_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.UpdateAddress(context.Background(), "ghost", testFields("Ava Chen", false))
	require.ErrorIs(t, err, ErrAddressNotFound)
}

func TestDeleteAddress(t *testing.T) {
	svc, st := newTestService(t)
	added, err := svc.AddAddress(context.Background(), testFields("Ava Chen", false))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAddress(context.Background(), added.ID))
	assert.Empty(t, svc.Addresses())
	assert.Empty(t, st.Rows(address.Table))
}
