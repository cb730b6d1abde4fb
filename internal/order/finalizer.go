package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/metrics"
)

// StockLedger decrements stock inside the caller's transaction.
type StockLedger interface {
	Lock(ctx context.Context, q db.DBTX, productIDs []string) error
	Decrement(ctx context.Context, q db.DBTX, productID, sizeLabel string, quantity int) error
}

type CartDeleter interface {
	Delete(ctx context.Context, q db.DBTX, buyerID string) error
}

// Notifier delivers buyer-facing messages. Calls happen after the data they
// describe is committed, and failures never undo that.
type Notifier interface {
	OrderConfirmed(ctx context.Context, o ConfirmedOrder) error
	VerificationCodeIssued(ctx context.Context, p PendingOrder, code string) error
}

// Finalizer turns a verified COD pending order into a confirmed order.
type Finalizer struct {
	db       db.Beginner
	pending  PendingRepository
	orders   Repository
	ledger   StockLedger
	carts    CartDeleter
	notifier Notifier
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() string
}

func NewFinalizer(
	beginner db.Beginner,
	pending PendingRepository,
	orders Repository,
	ledger StockLedger,
	carts CartDeleter,
	notifier Notifier,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Finalizer {
	return &Finalizer{
		db:       beginner,
		pending:  pending,
		orders:   orders,
		ledger:   ledger,
		carts:    carts,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (f *Finalizer) WithClock(now func() time.Time) *Finalizer {
	f.now = now
	return f
}

// Finalize verifies code against the pending order and, in one transaction,
// creates the confirmed order, takes the stock, deletes the buyer's cart and
// deletes the pending order. It returns the new order id.
func (f *Finalizer) Finalize(ctx context.Context, pendingOrderID, code string) (string, error) {
	log := f.logger.With().Str("pending_order_id", pendingOrderID).Logger()

	o, err := f.finalize(ctx, pendingOrderID, code)
	f.metrics.Finalize(finalizeOutcome(err))
	if err != nil {
		ev := log.Warn()
		if Kind(err) == KindInternal {
			ev = log.Error()
		}
		ev.Err(err).Str("kind", Kind(err).String()).Msg("finalize COD order declined")
		return "", err
	}

	log.Info().
		Str("order_id", o.ID).
		Str("buyer_id", o.BuyerID).
		Int("items", len(o.Items)).
		Str("total", o.Pricing.TotalPrice.StringFixed(2)).
		Msg("COD order confirmed")

	if f.notifier != nil {
		if err := f.notifier.OrderConfirmed(context.WithoutCancel(ctx), *o); err != nil {
			log.Warn().Err(err).Str("order_id", o.ID).Msg("order confirmation notification failed")
		}
	}
	return o.ID, nil
}

func (f *Finalizer) finalize(ctx context.Context, pendingOrderID, code string) (*ConfirmedOrder, error) {
	pendingOrderID = strings.TrimSpace(pendingOrderID)
	code = strings.TrimSpace(code)
	if pendingOrderID == "" || code == "" {
		return nil, fmt.Errorf("%w: pending order id and code are required", ErrInvalidInput)
	}

	tx, err := f.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	p, err := f.pending.GetForUpdate(ctx, tx, pendingOrderID)
	if err != nil {
		return nil, err
	}
	if p.PaymentMethod != PaymentMethodCOD {
		return nil, fmt.Errorf("%w: payment method %q", ErrNotCOD, p.PaymentMethod)
	}
	if p.VerificationCodeHash == "" {
		return nil, fmt.Errorf("pending order %s: %w", p.ID, ErrMissingCodeHash)
	}
	if err := CheckCode(p.VerificationCodeHash, code); err != nil {
		return nil, err
	}
	now := f.now().UTC()
	if now.After(p.CodeExpiresAt) {
		return nil, ErrCodeExpired
	}

	addr, filled := NormalizeAddress(p.ShippingAddress)
	if len(filled) > 0 {
		f.logger.Warn().
			Str("pending_order_id", p.ID).
			Strs("fields", filled).
			Msg("shipping address completed with placeholders")
	}

	o := &ConfirmedOrder{
		ID:               f.newID(),
		BuyerID:          p.BuyerID,
		Items:            p.Items,
		ShippingAddress:  addr,
		Pricing:          p.Pricing,
		ShippingQuote:    p.ShippingQuote,
		DeliveryEstimate: p.DeliveryEstimate,
		PaymentMethod:    p.PaymentMethod,
		PaymentStatus:    PaymentStatusPending,
		Status:           StatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := f.orders.Create(ctx, tx, o); err != nil {
		return nil, err
	}

	productIDs := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		productIDs = append(productIDs, it.ProductID)
	}
	if err := f.ledger.Lock(ctx, tx, productIDs); err != nil {
		return nil, err
	}
	for i, it := range p.Items {
		if err := f.ledger.Decrement(ctx, tx, it.ProductID, it.Size, it.Quantity); err != nil {
			return nil, fmt.Errorf("line item %d: %w", i+1, err)
		}
	}

	if err := f.carts.Delete(ctx, tx, p.BuyerID); err != nil {
		return nil, err
	}
	if err := f.pending.Delete(ctx, tx, p.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return o, nil
}

func finalizeOutcome(err error) string {
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrCodeExpired):
		return "code_expired"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return Kind(err).String()
	}
}
