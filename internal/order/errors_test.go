package order

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/carrier"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/shipping"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{fmt.Errorf("%w: no buyer", ErrInvalidInput), KindValidation},
		{shipping.ErrInvalidRequest, KindValidation},
		{fmt.Errorf("pending order x: %w", ErrNotFound), KindNotFound},
		{&inventory.VariantNotFoundError{ProductID: "p1", Size: "XL"}, KindNotFound},
		{ErrCodeExpired, KindStateConflict},
		{fmt.Errorf("line item 1: %w", &inventory.InsufficientStockError{ProductName: "Tee"}), KindStateConflict},
		{&carrier.StatusError{Endpoint: "edit", StatusCode: 502}, KindUpstream},
		{fmt.Errorf("edit: %w", carrier.ErrMalformedResponse), KindUpstream},
		{ErrMissingCodeHash, KindInternal},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
