package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/carrier"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/metrics"
)

// B2BThresholdGrams is the weight from which shipments go to the freight API.
const B2BThresholdGrams = 20000

type Route string

const (
	RouteB2C Route = "b2c"
	RouteB2B Route = "b2b"
)

// DefaultBox is used for freight quotes when the caller gives no dimensions.
var DefaultBox = carrier.Box{LengthCM: 50, WidthCM: 40, HeightCM: 40, Count: 1}

// ParcelRater checks B2C serviceability and charges.
type ParcelRater interface {
	CheckServiceability(ctx context.Context, req carrier.ChargeRequest) carrier.Serviceability
}

// FreightRater prices B2B shipments.
type FreightRater interface {
	EstimateFreight(ctx context.Context, req carrier.FreightRequest) (carrier.FreightEstimate, error)
}

type RateRequest struct {
	SourcePin    string              `json:"sourcePin"`
	DestPin      string              `json:"destPin"`
	WeightGrams  int                 `json:"weightGrams"`
	InvoiceValue decimal.Decimal     `json:"invoiceValue"`
	Payment      carrier.PaymentMode `json:"paymentMode"`
	Boxes        []carrier.Box       `json:"boxes,omitempty"`
}

type Breakdown struct {
	Freight       decimal.Decimal `json:"freight"`
	FuelSurcharge decimal.Decimal `json:"fuelSurcharge"`
	CODFee        decimal.Decimal `json:"codFee"`
	Handling      decimal.Decimal `json:"handling"`
	GST           decimal.Decimal `json:"gst"`
	Other         decimal.Decimal `json:"other"`
}

// Quote is a shipping charge. When Fallback is set TotalCost is the fixed
// fallback charge and Error describes the carrier failure.
type Quote struct {
	TotalCost decimal.Decimal `json:"totalCost"`
	Breakdown Breakdown       `json:"breakdown"`
	Route     Route           `json:"route"`
	Fallback  bool            `json:"fallback"`
	Reason    carrier.Reason  `json:"reason,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// FallbackCharges are the fixed charges used when the carrier cannot price a
// shipment. COD carries the collection risk and is the higher of the two.
type FallbackCharges struct {
	COD     decimal.Decimal
	Prepaid decimal.Decimal
}

func DefaultFallbackCharges() FallbackCharges {
	return FallbackCharges{
		COD:     decimal.NewFromInt(150),
		Prepaid: decimal.NewFromInt(100),
	}
}

func (f FallbackCharges) For(p carrier.PaymentMode) decimal.Decimal {
	if p == carrier.PaymentCOD {
		return f.COD
	}
	return f.Prepaid
}

type Resolver struct {
	parcel   ParcelRater
	freight  FreightRater
	fallback FallbackCharges
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

func NewResolver(parcel ParcelRater, freight FreightRater, fallback FallbackCharges, logger zerolog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		parcel:   parcel,
		freight:  freight,
		fallback: fallback,
		logger:   logger,
		metrics:  m,
	}
}

// Estimate prices a shipment. Only malformed input is returned as an error;
// every carrier-side failure yields the fallback quote instead.
func (r *Resolver) Estimate(ctx context.Context, req RateRequest) (Quote, error) {
	if err := validateRate(req); err != nil {
		return Quote{}, err
	}

	var (
		q   Quote
		err error
	)
	if req.WeightGrams >= B2BThresholdGrams {
		q, err = r.b2b(ctx, req)
	} else {
		q, err = r.b2c(ctx, req)
	}
	if err == nil && !q.TotalCost.IsPositive() {
		err = fmt.Errorf("carrier returned non-positive total %s", q.TotalCost.String())
	}
	if err != nil {
		q = r.fallbackQuote(q.Route, q.Reason, req.Payment, err)
		r.logger.Warn().Err(err).
			Str("route", string(q.Route)).
			Str("source_pin", req.SourcePin).
			Str("dest_pin", req.DestPin).
			Int("weight_g", req.WeightGrams).
			Str("fallback_cost", q.TotalCost.StringFixed(2)).
			Msg("shipping quote fell back")
	}

	r.metrics.Quote(string(q.Route), q.Fallback)
	return q, nil
}

func (r *Resolver) b2c(ctx context.Context, req RateRequest) (Quote, error) {
	q := Quote{Route: RouteB2C}
	if r.parcel == nil {
		return q, carrier.ErrNotConfigured
	}

	res := r.parcel.CheckServiceability(ctx, carrier.ChargeRequest{
		OriginPin:   req.SourcePin,
		DestPin:     req.DestPin,
		Mode:        carrier.ModeSurface,
		WeightGrams: req.WeightGrams,
		Payment:     req.Payment,
	})
	if !res.Serviceable {
		q.Reason = res.Reason
		if res.Err == nil {
			return q, errors.New("destination not serviceable")
		}
		return q, res.Err
	}
	if res.Charges == nil {
		err := res.ChargesErr
		if err == nil {
			err = errors.New("charges unavailable")
		}
		return q, fmt.Errorf("charges unavailable: %w", err)
	}

	ch := res.Charges
	q.TotalCost = ch.Total
	q.Breakdown = Breakdown{
		Freight:       ch.Freight,
		FuelSurcharge: ch.FuelSurcharge,
		CODFee:        ch.CODFee,
		Handling:      ch.Handling,
		GST:           ch.GST,
	}
	return q, nil
}

func (r *Resolver) b2b(ctx context.Context, req RateRequest) (Quote, error) {
	q := Quote{Route: RouteB2B}
	if r.freight == nil {
		return q, carrier.ErrNotConfigured
	}

	boxes := req.Boxes
	if len(boxes) == 0 {
		boxes = []carrier.Box{DefaultBox}
	}
	est, err := r.freight.EstimateFreight(ctx, carrier.FreightRequest{
		Boxes:         boxes,
		WeightGrams:   req.WeightGrams,
		SourcePin:     req.SourcePin,
		DestPin:       req.DestPin,
		Payment:       req.Payment,
		InvoiceAmount: req.InvoiceValue,
	})
	if err != nil {
		if carrier.IsUnauthorized(err) || errors.Is(err, carrier.ErrAuthFailed) {
			q.Reason = carrier.ReasonAuthFailed
		}
		return q, err
	}

	q.TotalCost = est.Total
	q.Breakdown = Breakdown{
		Freight:       est.BaseFreight,
		FuelSurcharge: est.FuelSurcharge,
		Other:         est.OtherCharges,
	}
	return q, nil
}

func (r *Resolver) fallbackQuote(route Route, reason carrier.Reason, p carrier.PaymentMode, cause error) Quote {
	cost := r.fallback.For(p)
	return Quote{
		TotalCost: cost,
		Breakdown: Breakdown{Freight: cost},
		Route:     route,
		Fallback:  true,
		Reason:    reason,
		Error:     cause.Error(),
	}
}

func validateRate(req RateRequest) error {
	switch {
	case strings.TrimSpace(req.SourcePin) == "" || strings.TrimSpace(req.DestPin) == "":
		return fmt.Errorf("%w: source and destination pincodes are required", ErrInvalidRequest)
	case req.WeightGrams <= 0:
		return fmt.Errorf("%w: weight must be positive", ErrInvalidRequest)
	case req.InvoiceValue.IsNegative():
		return fmt.Errorf("%w: invoice value must not be negative", ErrInvalidRequest)
	case req.Payment != carrier.PaymentCOD && req.Payment != carrier.PaymentPrepaid:
		return fmt.Errorf("%w: unknown payment mode %q", ErrInvalidRequest, req.Payment)
	}
	return nil
}
