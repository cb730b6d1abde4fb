package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/db"
)

const defaultMaxAttempts = 3

// Ledger applies per-size stock decrements inside the caller's transaction.
type Ledger struct {
	repo        Repository
	logger      zerolog.Logger
	maxAttempts int
}

func NewLedger(repo Repository, logger zerolog.Logger) *Ledger {
	return &Ledger{repo: repo, logger: logger, maxAttempts: defaultMaxAttempts}
}

// Lock takes the product row locks for every distinct id in ascending order.
// Callers that decrement several products in one transaction lock first, so
// two orders naming the same products in different orders cannot deadlock.
func (l *Ledger) Lock(ctx context.Context, q db.DBTX, productIDs []string) error {
	ids := slices.Clone(productIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return nil
	}
	return l.repo.LockProducts(ctx, q, ids)
}

// Decrement takes quantity units of sizeLabel from the product's first sub
// product. Nothing is written unless the full quantity is available.
func (l *Ledger) Decrement(ctx context.Context, q db.DBTX, productID, sizeLabel string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	var err error
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		err = l.decrementOnce(ctx, q, productID, sizeLabel, quantity)
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		l.logger.Warn().
			Str("product_id", productID).
			Str("size", sizeLabel).
			Int("attempt", attempt).
			Msg("stock version conflict, reloading")
	}
	return err
}

func (l *Ledger) decrementOnce(ctx context.Context, q db.DBTX, productID, sizeLabel string, quantity int) error {
	p, err := l.repo.GetForUpdate(ctx, q, productID)
	if err != nil {
		return err
	}
	if len(p.SubProducts) == 0 {
		return &VariantNotFoundError{ProductID: productID, Size: sizeLabel}
	}

	sub := p.SubProducts[0]
	idx := findSize(sub.Sizes, sizeLabel)
	if idx < 0 {
		return &VariantNotFoundError{ProductID: productID, Size: sizeLabel}
	}

	size := sub.Sizes[idx]
	if size.Qty < quantity {
		return &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Size:        size.Label,
			Requested:   quantity,
			Available:   size.Qty,
		}
	}

	sub.Sold = NextSubProductSold(sub.Sold, sumSold(sub.Sizes), quantity)
	size.Qty -= quantity
	size.Sold += quantity

	return l.repo.SaveStock(ctx, q, sub, size)
}

func findSize(sizes []Size, label string) int {
	for i, s := range sizes {
		if strings.EqualFold(s.Label, label) {
			return i
		}
	}
	return -1
}
