package session

import (
	"context"
	"testing"

	"github.com/hygiapro/bookings/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deepClean = catalog.Service{ID: "deep-cleaning", Name: "Deep Cleaning", StartingPrice: 40000}

func TestAddMergesSameKey(t *testing.T) {
	s := New()
	s.Add(deepClean, nil)
	s.Add(deepClean, nil)

	require.Len(t, s.Cart, 1)
	assert.Equal(t, 2, s.Cart[0].Quantity)
	assert.Equal(t, 80000.0, s.Total())
}

func TestDifferentTierIsDistinctLine(t *testing.T) {
	s := New()
	s.Add(deepClean, nil)
	s.Add(deepClean, &catalog.PricingSelection{City: "Jos", Label: "2-3 bedroom", Price: 45000})

	require.Len(t, s.Cart, 2)
	assert.Equal(t, "deep-cleaning|Jos|2-3 bedroom", s.Cart[1].Key())
	assert.Equal(t, 85000.0, s.Total())
	assert.Equal(t, 2, s.ItemCount())
}

func TestUpdateQuantity(t *testing.T) {
	s := New()
	s.Add(deepClean, nil)

	require.NoError(t, s.UpdateQuantity("deep-cleaning", 3))
	assert.Equal(t, 3, s.ItemCount())

	assert.ErrorIs(t, s.UpdateQuantity("nope", 2), ErrUnknownLine)

	require.NoError(t, s.UpdateQuantity("deep-cleaning", 0))
	assert.Empty(t, s.Cart)
}

func TestRemove(t *testing.T) {
	s := New()
	s.Add(deepClean, nil)
	s.Add(catalog.Service{ID: "basic-cleaning", StartingPrice: 25000}, nil)

	s.Remove("deep-cleaning")
	require.Len(t, s.Cart, 1)
	assert.Equal(t, "basic-cleaning", s.Cart[0].ServiceID)
}

func TestPaymentRequestNeedsEverything(t *testing.T) {
	s := New()
	_, err := s.PaymentRequest()
	assert.ErrorIs(t, err, ErrEmptyCart)

	s.Add(deepClean, nil)
	_, err = s.PaymentRequest()
	assert.ErrorIs(t, err, ErrNoSlot)

	s.SetSlot("2026-03-10", "09:00")
	_, err = s.PaymentRequest()
	assert.ErrorIs(t, err, ErrNoCustomer)

	s.SetCustomer(CustomerDetails{FullName: "Ada", Email: "ada@example.com", Phone: "08031234567", Address: "12 Marina"})
	req, err := s.PaymentRequest()
	require.NoError(t, err)
	assert.Equal(t, 40000.0, req.TotalAmount)
	assert.Equal(t, "09:00", req.BookingTime)
	require.Len(t, req.Services, 1)
	assert.Equal(t, 40000.0, req.Services[0].Price)
}

func TestEncodeDecode(t *testing.T) {
	s := New()
	s.Add(deepClean, &catalog.PricingSelection{City: "Abuja", Label: "2-3 bedroom", Price: 45000})
	s.SetSlot("2026-03-10", "10:00")

	raw, err := Encode(s)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, s.Total(), got.Total())
	assert.Equal(t, s.Slot, got.Slot)

	empty, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Cart)

	_, err = Decode([]byte(`{"version":9}`))
	assert.ErrorIs(t, err, ErrUnsupportedData)
}

func TestReset(t *testing.T) {
	s := New()
	s.Add(deepClean, nil)
	s.SetSlot("2026-03-10", "10:00")
	s.SetCustomer(CustomerDetails{FullName: "Ada"})

	s.Reset()
	assert.Empty(t, s.Cart)
	assert.Nil(t, s.Slot)
	assert.Nil(t, s.Customer)
	assert.Zero(t, s.Total())
}

func TestRepriceUsesCatalog(t *testing.T) {
	provider := catalog.NewStaticProvider([]catalog.Service{{
		ID: "deep-cleaning", Name: "Deep Cleaning", StartingPrice: 40000,
		Pricing: []catalog.CityPricing{{City: "Jos", Tiers: []catalog.PricingTier{{Label: "2-3 bedroom", Min: 40000, Max: 55000}}}},
	}})

	s := New()
	s.Add(catalog.Service{ID: "deep-cleaning", Name: "Cheap Clean", StartingPrice: 1}, nil)
	require.NoError(t, s.Reprice(context.Background(), provider))
	assert.Equal(t, "Deep Cleaning", s.Cart[0].Name)
	assert.Equal(t, 40000.0, s.Total())

	s.Add(deepClean, &catalog.PricingSelection{City: "Jos", Label: "2-3 bedroom", Price: 100})
	assert.ErrorIs(t, s.Reprice(context.Background(), provider), ErrInvalidPrice)

	s = New()
	s.Add(deepClean, &catalog.PricingSelection{City: "Lagos", Label: "2-3 bedroom", Price: 45000})
	assert.ErrorIs(t, s.Reprice(context.Background(), provider), catalog.ErrServiceNotFound)

	s = New()
	s.Add(catalog.Service{ID: "ghost"}, nil)
	assert.ErrorIs(t, s.Reprice(context.Background(), provider), catalog.ErrServiceNotFound)
}
