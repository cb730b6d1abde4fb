package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/carrier"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/shipping"
)

// DefaultItemWeightGrams is assumed per unit when checkout gives no weight.
const DefaultItemWeightGrams = 500

type CartReader interface {
	Get(ctx context.Context, q db.DBTX, buyerID string) (*cart.Cart, error)
}

type RateQuoter interface {
	Estimate(ctx context.Context, req shipping.RateRequest) (shipping.Quote, error)
}

type DeliveryEstimator interface {
	Estimate(ctx context.Context, req shipping.EstimateRequest) (shipping.DeliveryEstimate, error)
}

type CheckoutConfig struct {
	WarehousePin string
	TaxRate      decimal.Decimal
	CodeTTL      time.Duration
}

type PlaceCODRequest struct {
	BuyerID     string
	Address     Address
	WeightGrams int
	Discount    decimal.Decimal
	Mode        carrier.Mode
	PickupDate  string
}

// PlaceCODResult carries the plaintext code for the notifier; it is never
// stored.
type PlaceCODResult struct {
	Order *PendingOrder
	Code  string
}

// Checkout prices a buyer's cart and records it as a COD pending order.
type Checkout struct {
	db       db.DBTX
	carts    CartReader
	pending  PendingRepository
	rates    RateQuoter
	delivery DeliveryEstimator
	notifier Notifier
	cfg      CheckoutConfig
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
}

func NewCheckout(
	q db.DBTX,
	carts CartReader,
	pending PendingRepository,
	rates RateQuoter,
	delivery DeliveryEstimator,
	notifier Notifier,
	cfg CheckoutConfig,
	logger zerolog.Logger,
) *Checkout {
	return &Checkout{
		db:       q,
		carts:    carts,
		pending:  pending,
		rates:    rates,
		delivery: delivery,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (c *Checkout) WithClock(now func() time.Time) *Checkout {
	c.now = now
	return c
}

func (c *Checkout) PlaceCOD(ctx context.Context, req PlaceCODRequest) (*PlaceCODResult, error) {
	if err := validatePlaceCOD(req); err != nil {
		return nil, err
	}

	crt, err := c.carts.Get(ctx, c.db, req.BuyerID)
	if err != nil {
		return nil, err
	}
	if crt == nil || len(crt.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]LineItem, 0, len(crt.Items))
	units := 0
	for _, it := range crt.Items {
		items = append(items, LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
		units += it.Quantity
	}
	weight := req.WeightGrams
	if weight <= 0 {
		weight = units * DefaultItemWeightGrams
	}

	itemsPrice := crt.Subtotal()
	destPin := strings.TrimSpace(req.Address.PostalCode)

	quote, err := c.rates.Estimate(ctx, shipping.RateRequest{
		SourcePin:    c.cfg.WarehousePin,
		DestPin:      destPin,
		WeightGrams:  weight,
		InvoiceValue: itemsPrice,
		Payment:      carrier.PaymentCOD,
	})
	if err != nil {
		return nil, err
	}
	if quote.Reason == carrier.ReasonNotServiceable {
		return nil, fmt.Errorf("%w: pincode %s", ErrNotServiceable, destPin)
	}

	estimate, err := c.delivery.Estimate(ctx, shipping.EstimateRequest{
		OriginPin:  c.cfg.WarehousePin,
		DestPin:    destPin,
		Mode:       req.Mode,
		PickupHint: req.PickupDate,
	})
	if err != nil {
		return nil, err
	}

	pricing := priceOrder(itemsPrice, quote.TotalCost, c.cfg.TaxRate, req.Discount)

	code, err := NewVerificationCode()
	if err != nil {
		return nil, err
	}
	hash, err := HashCode(code)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	p := &PendingOrder{
		ID:                   c.newID(),
		BuyerID:              req.BuyerID,
		Items:                items,
		ShippingAddress:      req.Address,
		Pricing:              pricing,
		ShippingQuote:        quote,
		DeliveryEstimate:     estimate,
		PaymentMethod:        PaymentMethodCOD,
		VerificationCodeHash: hash,
		CodeExpiresAt:        now.Add(c.cfg.CodeTTL),
		CreatedAt:            now,
	}
	if err := c.pending.Create(ctx, c.db, p); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("pending_order_id", p.ID).
		Str("buyer_id", p.BuyerID).
		Str("total", p.Pricing.TotalPrice.StringFixed(2)).
		Bool("shipping_fallback", quote.Fallback).
		Bool("delivery_fallback", estimate.Fallback).
		Msg("COD pending order created")

	if c.notifier != nil {
		if err := c.notifier.VerificationCodeIssued(context.WithoutCancel(ctx), *p, code); err != nil {
			c.logger.Warn().Err(err).Str("pending_order_id", p.ID).Msg("verification code notification failed")
		}
	}
	return &PlaceCODResult{Order: p, Code: code}, nil
}

// priceOrder computes the frozen pricing snapshot. The total never goes
// below zero however large the discount.
func priceOrder(items, shippingCost, taxRate, discount decimal.Decimal) Pricing {
	tax := items.Mul(taxRate).Round(2)
	total := items.Add(shippingCost).Add(tax).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Pricing{
		ItemsPrice:    items,
		ShippingPrice: shippingCost,
		TaxPrice:      tax,
		Discount:      discount,
		TotalPrice:    total,
	}.Round()
}

func validatePlaceCOD(req PlaceCODRequest) error {
	a := req.Address
	switch {
	case strings.TrimSpace(req.BuyerID) == "":
		return fmt.Errorf("%w: buyer id is required", ErrInvalidInput)
	case strings.TrimSpace(a.PostalCode) == "":
		return fmt.Errorf("%w: postal code is required", ErrInvalidInput)
	case strings.TrimSpace(a.Line1) == "" || strings.TrimSpace(a.City) == "":
		return fmt.Errorf("%w: address line and city are required", ErrInvalidInput)
	case req.Discount.IsNegative():
		return fmt.Errorf("%w: discount must not be negative", ErrInvalidInput)
	case req.WeightGrams < 0:
		return fmt.Errorf("%w: weight must not be negative", ErrInvalidInput)
	}
	return nil
}
