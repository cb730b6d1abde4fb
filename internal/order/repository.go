package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/db"
)

type PendingRepository interface {
	Create(ctx context.Context, q db.DBTX, p *PendingOrder) error
	// GetForUpdate locks the row so concurrent finalizations of the same
	// order serialize; the loser sees ErrNotFound once the winner commits.
	GetForUpdate(ctx context.Context, q db.DBTX, id string) (*PendingOrder, error)
	Delete(ctx context.Context, q db.DBTX, id string) error
}

type Repository interface {
	Create(ctx context.Context, q db.DBTX, o *ConfirmedOrder) error
	Get(ctx context.Context, q db.DBTX, id string) (*ConfirmedOrder, error)
	GetForUpdate(ctx context.Context, q db.DBTX, id string) (*ConfirmedOrder, error)
	UpdateShipment(ctx context.Context, q db.DBTX, id string, details ShipmentDetails, updatedAt time.Time) error
}

const (
	insertPendingSQL = `
		INSERT INTO pending_orders (id, buyer_id, items, shipping_address,
			items_price, shipping_price, tax_price, discount, total_price,
			shipping_quote, delivery_estimate, payment_method,
			verification_code_hash, code_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	selectPendingForUpdateSQL = `
		SELECT id, buyer_id, items, shipping_address,
			items_price::text, shipping_price::text, tax_price::text, discount::text, total_price::text,
			shipping_quote, delivery_estimate, payment_method,
			verification_code_hash, code_expires_at, created_at
		FROM pending_orders
		WHERE id = $1
		FOR UPDATE`

	deletePendingSQL = `DELETE FROM pending_orders WHERE id = $1`

	insertOrderSQL = `
		INSERT INTO orders (id, buyer_id, items, shipping_address,
			items_price, shipping_price, tax_price, discount, total_price,
			shipping_quote, delivery_estimate, payment_method, payment_status,
			status, shipment_details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	selectOrderSQL = `
		SELECT id, buyer_id, items, shipping_address,
			items_price::text, shipping_price::text, tax_price::text, discount::text, total_price::text,
			shipping_quote, delivery_estimate, payment_method, payment_status,
			status, shipment_details, created_at, updated_at
		FROM orders
		WHERE id = $1`

	selectOrderForUpdateSQL = selectOrderSQL + `
		FOR UPDATE`

	updateShipmentSQL = `
		UPDATE orders
		SET shipment_details = $2, updated_at = $3
		WHERE id = $1`
)

type PostgresPendingRepository struct{}

func NewPostgresPendingRepository() *PostgresPendingRepository {
	return &PostgresPendingRepository{}
}

func (r *PostgresPendingRepository) Create(ctx context.Context, q db.DBTX, p *PendingOrder) error {
	items, addr, quote, est, err := encodeSnapshot(p.Items, p.ShippingAddress, p.ShippingQuote, p.DeliveryEstimate)
	if err != nil {
		return err
	}
	var hash *string
	if p.VerificationCodeHash != "" {
		hash = &p.VerificationCodeHash
	}
	var expires *time.Time
	if !p.CodeExpiresAt.IsZero() {
		expires = &p.CodeExpiresAt
	}

	_, err = q.Exec(ctx, insertPendingSQL,
		p.ID, p.BuyerID, items, addr,
		money(p.Pricing.ItemsPrice), money(p.Pricing.ShippingPrice), money(p.Pricing.TaxPrice),
		money(p.Pricing.Discount), money(p.Pricing.TotalPrice),
		quote, est, string(p.PaymentMethod),
		hash, expires, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pending order: %w", err)
	}
	return nil
}

func (r *PostgresPendingRepository) GetForUpdate(ctx context.Context, q db.DBTX, id string) (*PendingOrder, error) {
	var (
		p                          PendingOrder
		items, addr, quote, est    []byte
		itemsP, shipP, taxP, discP string
		totalP, method             string
		hash                       *string
		expires                    *time.Time
	)
	err := q.QueryRow(ctx, selectPendingForUpdateSQL, id).Scan(
		&p.ID, &p.BuyerID, &items, &addr,
		&itemsP, &shipP, &taxP, &discP, &totalP,
		&quote, &est, &method,
		&hash, &expires, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pending order %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select pending order: %w", err)
	}

	if err := decodeSnapshot(items, addr, quote, est, &p.Items, &p.ShippingAddress, &p.ShippingQuote, &p.DeliveryEstimate); err != nil {
		return nil, err
	}
	if p.Pricing, err = parsePricing(itemsP, shipP, taxP, discP, totalP); err != nil {
		return nil, err
	}
	p.PaymentMethod = PaymentMethod(method)
	if hash != nil {
		p.VerificationCodeHash = *hash
	}
	if expires != nil {
		p.CodeExpiresAt = *expires
	}
	return &p, nil
}

func (r *PostgresPendingRepository) Delete(ctx context.Context, q db.DBTX, id string) error {
	tag, err := q.Exec(ctx, deletePendingSQL, id)
	if err != nil {
		return fmt.Errorf("delete pending order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending order %s: %w", id, ErrNotFound)
	}
	return nil
}

type PostgresRepository struct{}

func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

func (r *PostgresRepository) Create(ctx context.Context, q db.DBTX, o *ConfirmedOrder) error {
	items, addr, quote, est, err := encodeSnapshot(o.Items, o.ShippingAddress, o.ShippingQuote, o.DeliveryEstimate)
	if err != nil {
		return err
	}
	shipment, err := json.Marshal(o.ShipmentDetails)
	if err != nil {
		return fmt.Errorf("encode shipment details: %w", err)
	}

	_, err = q.Exec(ctx, insertOrderSQL,
		o.ID, o.BuyerID, items, addr,
		money(o.Pricing.ItemsPrice), money(o.Pricing.ShippingPrice), money(o.Pricing.TaxPrice),
		money(o.Pricing.Discount), money(o.Pricing.TotalPrice),
		quote, est, string(o.PaymentMethod), string(o.PaymentStatus),
		string(o.Status), shipment, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, q db.DBTX, id string) (*ConfirmedOrder, error) {
	return r.get(ctx, q, selectOrderSQL, id)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, q db.DBTX, id string) (*ConfirmedOrder, error) {
	return r.get(ctx, q, selectOrderForUpdateSQL, id)
}

func (r *PostgresRepository) get(ctx context.Context, q db.DBTX, query, id string) (*ConfirmedOrder, error) {
	var (
		o                               ConfirmedOrder
		items, addr, quote, est, ship   []byte
		itemsP, shipP, taxP, discP      string
		totalP, method, payStatus, stat string
	)
	err := q.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.BuyerID, &items, &addr,
		&itemsP, &shipP, &taxP, &discP, &totalP,
		&quote, &est, &method, &payStatus,
		&stat, &ship, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := decodeSnapshot(items, addr, quote, est, &o.Items, &o.ShippingAddress, &o.ShippingQuote, &o.DeliveryEstimate); err != nil {
		return nil, err
	}
	if len(ship) > 0 {
		if err := json.Unmarshal(ship, &o.ShipmentDetails); err != nil {
			return nil, fmt.Errorf("decode shipment details: %w", err)
		}
	}
	if o.Pricing, err = parsePricing(itemsP, shipP, taxP, discP, totalP); err != nil {
		return nil, err
	}
	o.PaymentMethod = PaymentMethod(method)
	o.PaymentStatus = PaymentStatus(payStatus)
	o.Status = Status(stat)
	return &o, nil
}

func (r *PostgresRepository) UpdateShipment(ctx context.Context, q db.DBTX, id string, details ShipmentDetails, updatedAt time.Time) error {
	body, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode shipment details: %w", err)
	}
	tag, err := q.Exec(ctx, updateShipmentSQL, id, body, updatedAt)
	if err != nil {
		return fmt.Errorf("update shipment details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return nil
}

// money renders a NUMERIC(12,2) parameter.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func parsePricing(items, shipping, tax, discount, total string) (Pricing, error) {
	var p Pricing
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&p.ItemsPrice, items},
		{&p.ShippingPrice, shipping},
		{&p.TaxPrice, tax},
		{&p.Discount, discount},
		{&p.TotalPrice, total},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return Pricing{}, fmt.Errorf("decode price %q: %w", f.src, err)
		}
		*f.dst = d
	}
	return p, nil
}

func encodeSnapshot(items []LineItem, addr Address, quote, est any) ([]byte, []byte, []byte, []byte, error) {
	var out [4][]byte
	for i, v := range []any{items, addr, quote, est} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("encode order snapshot: %w", err)
		}
		out[i] = b
	}
	return out[0], out[1], out[2], out[3], nil
}

func decodeSnapshot(items, addr, quote, est []byte, dst ...any) error {
	for i, b := range [][]byte{items, addr, quote, est} {
		if len(b) == 0 {
			continue
		}
		if err := json.Unmarshal(b, dst[i]); err != nil {
			return fmt.Errorf("decode order snapshot: %w", err)
		}
	}
	return nil
}
