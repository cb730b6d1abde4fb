package order

import (
	"errors"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/carrier"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/shipping"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrNotCOD          = errors.New("order: not a COD order")
	ErrMissingCodeHash = errors.New("order: verification code hash missing")
	ErrInvalidCode     = errors.New("order: invalid verification code")
	ErrCodeExpired     = errors.New("order: verification code expired")
	ErrInvalidInput    = errors.New("order: invalid input")
	ErrEmptyCart       = errors.New("order: cart is empty")
	ErrNotServiceable  = errors.New("order: destination not serviceable")
	ErrStatusConflict  = errors.New("order: status does not allow this change")
	ErrNoWaybill       = errors.New("order: no waybill assigned")
)

// ErrorKind groups errors by how callers should react to them.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindStateConflict
	KindUpstream
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStateConflict:
		return "state_conflict"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Kind classifies err. Unknown errors are internal.
func Kind(err error) ErrorKind {
	var status *carrier.StatusError
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, shipping.ErrInvalidRequest),
		errors.Is(err, inventory.ErrInvalidQuantity):
		return KindValidation
	case errors.Is(err, ErrNotFound),
		errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, inventory.ErrVariantNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotCOD),
		errors.Is(err, ErrInvalidCode),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrNotServiceable),
		errors.Is(err, ErrStatusConflict),
		errors.Is(err, ErrNoWaybill),
		errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrVersionConflict):
		return KindStateConflict
	case errors.As(err, &status),
		errors.Is(err, carrier.ErrMalformedResponse),
		errors.Is(err, carrier.ErrAuthFailed),
		errors.Is(err, carrier.ErrNotConfigured):
		return KindUpstream
	default:
		return KindInternal
	}
}
