package carrier

import (
	"fmt"
	"strings"
)

// Mode is the carrier's transport mode.
type Mode string

const (
	ModeSurface Mode = "S"
	ModeExpress Mode = "E"
)

// ParseMode accepts "S", "E", "surface" or "express"; empty means surface.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "s", "surface":
		return ModeSurface, nil
	case "e", "express":
		return ModeExpress, nil
	default:
		return "", fmt.Errorf("unknown shipping mode %q", s)
	}
}

type PaymentMode string

const (
	PaymentCOD     PaymentMode = "cod"
	PaymentPrepaid PaymentMode = "prepaid"
)

func ParsePaymentMode(s string) (PaymentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cod":
		return PaymentCOD, nil
	case "prepaid", "pre-paid":
		return PaymentPrepaid, nil
	default:
		return "", fmt.Errorf("unknown payment mode %q", s)
	}
}

// chargeType is the pt query value of the parcel charges API.
func (p PaymentMode) chargeType() string {
	if p == PaymentCOD {
		return "COD"
	}
	return "Pre-paid"
}
