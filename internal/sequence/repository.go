package sequence

import (
	"context"
	"fmt"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/db"
)

const nextSequenceSQL = `
	INSERT INTO event_sequence (partition_key, last_sequence)
	VALUES ($1, 1)
	ON CONFLICT (partition_key)
	DO UPDATE SET last_sequence = event_sequence.last_sequence + 1, updated_at = now()
	RETURNING last_sequence`

// Repository numbers events per partition key (the order id), so consumers
// can detect gaps and reordering.
type Repository struct {
	store db.DBTX
}

func NewRepository(store db.DBTX) *Repository {
	return &Repository{store: store}
}

// NextSequence atomically increments and returns the next sequence for a partition.
func (r *Repository) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	var seq int64
	if err := r.store.QueryRow(ctx, nextSequenceSQL, partitionKey).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
