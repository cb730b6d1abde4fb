package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/db"
)

type Repository interface {
	Get(ctx context.Context, q db.DBTX, buyerID string) (*Cart, error)
	Delete(ctx context.Context, q db.DBTX, buyerID string) error
}

const (
	selectCartSQL = `SELECT buyer_id, items, updated_at FROM carts WHERE buyer_id = $1`
	deleteCartSQL = `DELETE FROM carts WHERE buyer_id = $1`
)

type PostgresRepository struct{}

func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

// Get returns nil, nil when the buyer has no cart.
func (r *PostgresRepository) Get(ctx context.Context, q db.DBTX, buyerID string) (*Cart, error) {
	var c Cart
	var items []byte
	err := q.QueryRow(ctx, selectCartSQL, buyerID).Scan(&c.BuyerID, &items, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	return &c, nil
}

// Delete removes the buyer's cart. A missing cart is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, q db.DBTX, buyerID string) error {
	if _, err := q.Exec(ctx, deleteCartSQL, buyerID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
