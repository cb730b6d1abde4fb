package shipment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/carrier"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/order"
)

// CarrierEditor updates a manifested shipment at the carrier.
type CarrierEditor interface {
	EditShipment(ctx context.Context, edit carrier.ShipmentEdit) error
}

type Request struct {
	LengthCM    float64 `json:"lengthCm"`
	WidthCM     float64 `json:"widthCm"`
	HeightCM    float64 `json:"heightCm"`
	WeightGrams int     `json:"weightGrams"`
}

type Result struct {
	OrderID         string                `json:"orderId"`
	ShipmentDetails order.ShipmentDetails `json:"shipmentDetails"`
	Fabricated      bool                  `json:"fabricated"`
}

// Editor changes package dimensions and weight of a shipped-but-not-picked-up
// order, at the carrier and on the order record.
type Editor struct {
	db           db.Beginner
	orders       order.Repository
	carrier      CarrierEditor
	demoFallback bool
	logger       zerolog.Logger
	now          func() time.Time
}

// NewEditor builds an Editor. With demoFallback set a failed carrier call is
// recorded as a fabricated success instead of being returned.
func NewEditor(beginner db.Beginner, orders order.Repository, c CarrierEditor, demoFallback bool, logger zerolog.Logger) *Editor {
	if demoFallback {
		logger.Warn().Msg("shipment edit demo fallback enabled: carrier failures will be recorded as fabricated successes")
	}
	return &Editor{
		db:           beginner,
		orders:       orders,
		carrier:      c,
		demoFallback: demoFallback,
		logger:       logger,
		now:          time.Now,
	}
}

func (e *Editor) WithClock(now func() time.Time) *Editor {
	e.now = now
	return e
}

func editable(s order.Status) bool {
	return s == order.StatusProcessing || s == order.StatusReadyToShip
}

func (e *Editor) Edit(ctx context.Context, orderID string, req Request) (*Result, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", order.ErrInvalidInput)
	}
	if req.LengthCM <= 0 || req.WidthCM <= 0 || req.HeightCM <= 0 || req.WeightGrams <= 0 {
		return nil, fmt.Errorf("%w: dimensions and weight must be positive", order.ErrInvalidInput)
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := e.orders.GetForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !editable(o.Status) {
		return nil, fmt.Errorf("%w: order %s is %s", order.ErrStatusConflict, o.ID, o.Status)
	}
	details := o.ShipmentDetails
	if len(details.Waybills) == 0 {
		return nil, fmt.Errorf("%w: order %s", order.ErrNoWaybill, o.ID)
	}

	record := order.ShipmentEditRecord{
		At:          e.now().UTC(),
		Waybills:    details.Waybills,
		LengthCM:    req.LengthCM,
		WidthCM:     req.WidthCM,
		HeightCM:    req.HeightCM,
		WeightGrams: req.WeightGrams,
	}

	for _, wb := range details.Waybills {
		err := e.carrier.EditShipment(ctx, carrier.ShipmentEdit{
			Waybill:     wb,
			LengthCM:    req.LengthCM,
			WidthCM:     req.WidthCM,
			HeightCM:    req.HeightCM,
			WeightGrams: req.WeightGrams,
		})
		if err == nil {
			continue
		}
		if !e.demoFallback {
			return nil, fmt.Errorf("edit waybill %s: %w", wb, err)
		}
		e.logger.Warn().Err(err).
			Str("order_id", o.ID).
			Str("waybill", wb).
			Bool("fabricated", true).
			Msg("AUDIT carrier shipment edit failed, recording fabricated success")
		record.Fabricated = true
		record.CarrierErr = err.Error()
		break
	}

	details.LengthCM = req.LengthCM
	details.WidthCM = req.WidthCM
	details.HeightCM = req.HeightCM
	details.WeightGrams = req.WeightGrams
	details.EditHistory = append(details.EditHistory, record)

	if err := e.orders.UpdateShipment(ctx, tx, o.ID, details, record.At); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	e.logger.Info().
		Str("order_id", o.ID).
		Strs("waybills", details.Waybills).
		Int("weight_g", req.WeightGrams).
		Bool("fabricated", record.Fabricated).
		Msg("shipment edited")
	return &Result{OrderID: o.ID, ShipmentDetails: details, Fabricated: record.Fabricated}, nil
}
