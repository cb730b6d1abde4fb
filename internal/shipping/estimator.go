package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/carrier"
)

// ErrInvalidRequest is returned for malformed estimate or quote input.
var ErrInvalidRequest = errors.New("shipping: invalid request")

const dateLayout = "2006-01-02"

// Heuristic TAT texts used when the carrier cannot be asked.
const (
	surfaceFallbackTAT = "5-7 days"
	expressFallbackTAT = "2-3 days"
)

// TATSource returns a carrier's raw turn-around-time text.
type TATSource interface {
	ExpectedTAT(ctx context.Context, req carrier.TATRequest) (string, error)
}

type EstimateRequest struct {
	OriginPin  string
	DestPin    string
	Mode       carrier.Mode
	PickupHint string // YYYY-MM-DD, optional
}

// DeliveryEstimate is what checkout shows the buyer. Fallback means the numbers
// are heuristic defaults and not carrier-confirmed.
type DeliveryEstimate struct {
	ExpectedTAT          int    `json:"expected_tat"`
	ExpectedDeliveryDate string `json:"expected_delivery_date"`
	PickupDate           string `json:"pickup_date"`
	Fallback             bool   `json:"fallback"`
	Message              string `json:"message,omitempty"`
	Error                string `json:"error,omitempty"`
}

type Estimator struct {
	tat    TATSource
	cal    Calendar
	now    func() time.Time
	logger zerolog.Logger
}

func NewEstimator(tat TATSource, logger zerolog.Logger) *Estimator {
	return &Estimator{
		tat:    tat,
		cal:    WeekdayCalendar{},
		now:    time.Now,
		logger: logger,
	}
}

// WithCalendar replaces the weekday-only calendar, e.g. with one that knows holidays.
func (e *Estimator) WithCalendar(cal Calendar) *Estimator {
	e.cal = cal
	return e
}

func (e *Estimator) WithClock(now func() time.Time) *Estimator {
	e.now = now
	return e
}

// Estimate computes pickup and delivery dates for a shipment. Carrier failures
// never surface as errors; they produce a heuristic estimate with Fallback set.
func (e *Estimator) Estimate(ctx context.Context, req EstimateRequest) (DeliveryEstimate, error) {
	origin := strings.TrimSpace(req.OriginPin)
	dest := strings.TrimSpace(req.DestPin)
	if origin == "" || dest == "" {
		return DeliveryEstimate{}, fmt.Errorf("%w: origin and destination pincodes are required", ErrInvalidRequest)
	}

	pickup, err := e.pickupDate(req.PickupHint)
	if err != nil {
		return DeliveryEstimate{}, err
	}

	if origin == dest {
		return DeliveryEstimate{
			ExpectedTAT:          0,
			ExpectedDeliveryDate: pickup.Format(dateLayout),
			PickupDate:           pickup.Format(dateLayout),
			Message:              "same day delivery",
		}, nil
	}

	mode := req.Mode
	if mode == "" {
		mode = carrier.ModeSurface
	}

	out := DeliveryEstimate{PickupDate: pickup.Format(dateLayout)}
	text, err := e.tat.ExpectedTAT(ctx, carrier.TATRequest{
		OriginPin:  origin,
		DestPin:    dest,
		Mode:       mode,
		PickupDate: pickup,
	})
	if err == nil {
		if days := ExtractDays(text); days > MaxTATDays {
			err = fmt.Errorf("%w: tat %q exceeds %d days", carrier.ErrMalformedResponse, truncateTAT(text), MaxTATDays)
		}
	}
	if err != nil {
		e.logger.Warn().Err(err).
			Str("origin", origin).
			Str("destination", dest).
			Str("mode", string(mode)).
			Msg("expected tat unavailable, using heuristic")
		text = heuristicTAT(mode)
		out.Fallback = true
		out.Error = err.Error()
	}

	out.ExpectedTAT = ExtractDays(text)
	out.ExpectedDeliveryDate = AdvanceOn(e.cal, pickup, out.ExpectedTAT).Format(dateLayout)
	return out, nil
}

// pickupDate uses the hint when given, else tomorrow; either rolls forward off
// non-business days since the carrier does not collect on them.
func (e *Estimator) pickupDate(hint string) (time.Time, error) {
	var d time.Time
	if hint = strings.TrimSpace(hint); hint != "" {
		parsed, err := time.Parse(dateLayout, hint)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: pickup date %q must be YYYY-MM-DD", ErrInvalidRequest, hint)
		}
		d = parsed
	} else {
		now := e.now().UTC()
		d = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	}
	for !e.cal.IsBusinessDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d, nil
}

func heuristicTAT(mode carrier.Mode) string {
	if mode == carrier.ModeExpress {
		return expressFallbackTAT
	}
	return surfaceFallbackTAT
}

func truncateTAT(text string) string {
	if len(text) > 32 {
		return text[:32] + "..."
	}
	return text
}
