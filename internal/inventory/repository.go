package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/db"
)

// Repository reads and writes product stock on the caller's executor, which is
// normally the finalization transaction.
type Repository interface {
	LockProducts(ctx context.Context, q db.DBTX, productIDs []string) error
	GetForUpdate(ctx context.Context, q db.DBTX, productID string) (*Product, error)
	SaveStock(ctx context.Context, q db.DBTX, sub SubProduct, size Size) error
}

const (
	lockProductsSQL = `SELECT id FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	selectProductForUpdateSQL = `SELECT id, name FROM products WHERE id = $1 FOR UPDATE`

	selectSubProductsSQL = `
		SELECT id, sold
		FROM sub_products
		WHERE product_id = $1
		ORDER BY position`

	selectSizesSQL = `
		SELECT s.sub_product_id, s.id, s.label, s.qty, s.sold, s.version
		FROM product_sizes s
		JOIN sub_products sp ON sp.id = s.sub_product_id
		WHERE sp.product_id = $1
		ORDER BY sp.position, s.position`

	updateSizeSQL = `
		UPDATE product_sizes
		SET qty = $2, sold = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $4`

	updateSubProductSoldSQL = `UPDATE sub_products SET sold = $2 WHERE id = $1`
)

type PostgresRepository struct{}

func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

// LockProducts takes the row locks for productIDs in id order. Ids with no
// product row are skipped; GetForUpdate reports them.
func (r *PostgresRepository) LockProducts(ctx context.Context, q db.DBTX, productIDs []string) error {
	rows, err := q.Query(ctx, lockProductsSQL, productIDs)
	if err != nil {
		return fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock products: %w", err)
	}
	return nil
}

// GetForUpdate locks the product row and loads its sub products and sizes.
// Every stock writer takes the product lock first, so concurrent decrements of
// the same product serialize here.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, q db.DBTX, productID string) (*Product, error) {
	var p Product
	if err := q.QueryRow(ctx, selectProductForUpdateSQL, productID).Scan(&p.ID, &p.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}

	rows, err := q.Query(ctx, selectSubProductsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("select sub products: %w", err)
	}
	index := map[string]int{}
	for rows.Next() {
		var sp SubProduct
		if err := rows.Scan(&sp.ID, &sp.Sold); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sub product: %w", err)
		}
		index[sp.ID] = len(p.SubProducts)
		p.SubProducts = append(p.SubProducts, sp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sub product rows: %w", err)
	}

	rows, err = q.Query(ctx, selectSizesSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("select sizes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var subID string
		var s Size
		if err := rows.Scan(&subID, &s.ID, &s.Label, &s.Qty, &s.Sold, &s.Version); err != nil {
			return nil, fmt.Errorf("scan size: %w", err)
		}
		i, ok := index[subID]
		if !ok {
			continue
		}
		p.SubProducts[i].Sizes = append(p.SubProducts[i].Sizes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("size rows: %w", err)
	}

	return &p, nil
}

// SaveStock writes the size counters guarded by size.Version, then the sub
// product's sold counter. A stale version yields ErrVersionConflict.
func (r *PostgresRepository) SaveStock(ctx context.Context, q db.DBTX, sub SubProduct, size Size) error {
	tag, err := q.Exec(ctx, updateSizeSQL, size.ID, size.Qty, size.Sold, size.Version)
	if err != nil {
		return fmt.Errorf("update size: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	if _, err := q.Exec(ctx, updateSubProductSoldSQL, sub.ID, sub.Sold); err != nil {
		return fmt.Errorf("update sub product sold: %w", err)
	}
	return nil
}
