package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/carrier"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/shipping"
)

type stubRates struct {
	quote shipping.Quote
	err   error
	reqs  []shipping.RateRequest
}

func (s *stubRates) Estimate(ctx context.Context, req shipping.RateRequest) (shipping.Quote, error) {
	s.reqs = append(s.reqs, req)
	return s.quote, s.err
}

type stubDelivery struct {
	est  shipping.DeliveryEstimate
	err  error
	reqs []shipping.EstimateRequest
}

func (s *stubDelivery) Estimate(ctx context.Context, req shipping.EstimateRequest) (shipping.DeliveryEstimate, error) {
	s.reqs = append(s.reqs, req)
	return s.est, s.err
}

type checkoutFixture struct {
	store    *memStore
	rates    *stubRates
	delivery *stubDelivery
	notifier *recordingNotifier
	checkout *Checkout
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	store := newMemStore()
	store.state.carts["buyer-1"] = cart.Cart{
		BuyerID: "buyer-1",
		Items: []cart.Item{
			{ProductID: "p1", Name: "Linen Tee", Size: "M", Quantity: 2, Price: decimal.NewFromInt(499)},
			{ProductID: "p2", Name: "Cap", Size: "OS", Quantity: 1, Price: decimal.RequireFromString("250.50")},
		},
	}

	f := &checkoutFixture{
		store: store,
		rates: &stubRates{quote: shipping.Quote{
			TotalCost: decimal.RequireFromString("84.50"),
			Route:     shipping.RouteB2C,
		}},
		delivery: &stubDelivery{est: shipping.DeliveryEstimate{
			ExpectedTAT:          5,
			PickupDate:           "2026-03-06",
			ExpectedDeliveryDate: "2026-03-13",
		}},
		notifier: &recordingNotifier{},
	}
	f.checkout = NewCheckout(
		store.pool(),
		memCartRepo{},
		memPendingRepo{},
		f.rates,
		f.delivery,
		f.notifier,
		CheckoutConfig{
			WarehousePin: "110001",
			TaxRate:      decimal.RequireFromString("0.05"),
			CodeTTL:      15 * time.Minute,
		},
		zerolog.Nop(),
	).WithClock(func() time.Time { return testNow })
	return f
}

func validCODRequest() PlaceCODRequest {
	return PlaceCODRequest{
		BuyerID: "buyer-1",
		Address: Address{
			FirstName: "Asha", Phone: "9800000000", Line1: "12 MG Road",
			City: "Pune", State: "MH", PostalCode: "411001", Country: "India",
		},
		Discount: decimal.NewFromInt(50),
	}
}

func TestPlaceCOD_CreatesPendingOrder(t *testing.T) {
	f := newCheckoutFixture(t)

	res, err := f.checkout.PlaceCOD(context.Background(), validCODRequest())
	require.NoError(t, err)

	p := res.Order
	// items 1248.50, tax 62.43, shipping 84.50, discount 50
	assert.Equal(t, "1248.50", p.Pricing.ItemsPrice.StringFixed(2))
	assert.Equal(t, "62.43", p.Pricing.TaxPrice.StringFixed(2))
	assert.Equal(t, "84.50", p.Pricing.ShippingPrice.StringFixed(2))
	assert.Equal(t, "1345.43", p.Pricing.TotalPrice.StringFixed(2))
	assert.Equal(t, PaymentMethodCOD, p.PaymentMethod)
	assert.Equal(t, testNow.Add(15*time.Minute), p.CodeExpiresAt)
	assert.Equal(t, "2026-03-13", p.DeliveryEstimate.ExpectedDeliveryDate)
	require.Len(t, p.Items, 2)

	require.Len(t, f.rates.reqs, 1)
	rr := f.rates.reqs[0]
	assert.Equal(t, "110001", rr.SourcePin)
	assert.Equal(t, "411001", rr.DestPin)
	assert.Equal(t, 3*DefaultItemWeightGrams, rr.WeightGrams)
	assert.Equal(t, carrier.PaymentCOD, rr.Payment)
	assert.True(t, rr.InvoiceValue.Equal(decimal.RequireFromString("1248.50")))

	stored, ok := f.store.state.pending[p.ID]
	require.True(t, ok)
	assert.NoError(t, CheckCode(stored.VerificationCodeHash, res.Code))
	assert.Equal(t, res.Code, f.notifier.codes[p.ID])

	// the cart stays until finalization
	assert.Contains(t, f.store.state.carts, "buyer-1")
}

func TestPlaceCOD_ThenFinalize(t *testing.T) {
	f := newCheckoutFixture(t)
	f.store.state.products["p1"] = inventory.Product{ID: "p1", Name: "Linen Tee", SubProducts: []inventory.SubProduct{{
		ID: "sp1", Sizes: []inventory.Size{{ID: "s-m", Label: "M", Qty: 5}},
	}}}
	f.store.state.products["p2"] = inventory.Product{ID: "p2", Name: "Cap", SubProducts: []inventory.SubProduct{{
		ID: "sp2", Sizes: []inventory.Size{{ID: "s-os", Label: "OS", Qty: 1}},
	}}}

	res, err := f.checkout.PlaceCOD(context.Background(), validCODRequest())
	require.NoError(t, err)

	fin := NewFinalizer(f.store, memPendingRepo{}, memOrderRepo{},
		inventory.NewLedger(memProductRepo{}, zerolog.Nop()), memCartRepo{}, nil, zerolog.Nop(), nil).
		WithClock(func() time.Time { return testNow.Add(time.Minute) })

	orderID, err := fin.Finalize(context.Background(), res.Order.ID, res.Code)
	require.NoError(t, err)

	st := f.store.snapshot()
	o := st.orders[orderID]
	assert.True(t, o.Pricing.TotalPrice.Equal(res.Order.Pricing.TotalPrice))
	assert.Equal(t, 3, st.products["p1"].SubProducts[0].Sizes[0].Qty)
	assert.Equal(t, 0, st.products["p2"].SubProducts[0].Sizes[0].Qty)
	assert.Empty(t, st.pending)
	assert.Empty(t, st.carts)
}

func TestPlaceCOD_DiscountFloorsTotalAtZero(t *testing.T) {
	f := newCheckoutFixture(t)
	req := validCODRequest()
	req.Discount = decimal.NewFromInt(5000)

	res, err := f.checkout.PlaceCOD(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Order.Pricing.TotalPrice.IsZero())
}

func TestPlaceCOD_UsesFallbackQuote(t *testing.T) {
	f := newCheckoutFixture(t)
	f.rates.quote = shipping.Quote{
		TotalCost: decimal.NewFromInt(150),
		Route:     shipping.RouteB2C,
		Fallback:  true,
		Reason:    carrier.ReasonAPIError,
		Error:     "carrier 503",
	}

	res, err := f.checkout.PlaceCOD(context.Background(), validCODRequest())
	require.NoError(t, err)
	assert.True(t, res.Order.ShippingQuote.Fallback)
	assert.Equal(t, "150.00", res.Order.Pricing.ShippingPrice.StringFixed(2))
}

func TestPlaceCOD_Declines(t *testing.T) {
	tests := map[string]struct {
		mutate  func(f *checkoutFixture, req *PlaceCODRequest)
		wantErr error
		kind    ErrorKind
	}{
		"empty cart": {
			mutate:  func(f *checkoutFixture, req *PlaceCODRequest) { delete(f.store.state.carts, "buyer-1") },
			wantErr: ErrEmptyCart,
			kind:    KindValidation,
		},
		"missing postal code": {
			mutate:  func(f *checkoutFixture, req *PlaceCODRequest) { req.Address.PostalCode = "" },
			wantErr: ErrInvalidInput,
			kind:    KindValidation,
		},
		"negative discount": {
			mutate:  func(f *checkoutFixture, req *PlaceCODRequest) { req.Discount = decimal.NewFromInt(-1) },
			wantErr: ErrInvalidInput,
			kind:    KindValidation,
		},
		"not serviceable": {
			mutate: func(f *checkoutFixture, req *PlaceCODRequest) {
				f.rates.quote = shipping.Quote{Fallback: true, Reason: carrier.ReasonNotServiceable, TotalCost: decimal.NewFromInt(150)}
			},
			wantErr: ErrNotServiceable,
			kind:    KindStateConflict,
		},
		"bad pickup date": {
			mutate: func(f *checkoutFixture, req *PlaceCODRequest) {
				f.delivery.err = errors.Join(shipping.ErrInvalidRequest, errors.New("pickup date"))
			},
			wantErr: shipping.ErrInvalidRequest,
			kind:    KindValidation,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newCheckoutFixture(t)
			req := validCODRequest()
			tt.mutate(f, &req)

			_, err := f.checkout.PlaceCOD(context.Background(), req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.kind, Kind(err))
			assert.Empty(t, f.store.state.pending)
			assert.Empty(t, f.notifier.codes)
		})
	}
}
