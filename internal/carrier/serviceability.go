package carrier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// Reason explains a negative serviceability answer.
type Reason string

const (
	ReasonAuthFailed     Reason = "auth_failed"
	ReasonNotServiceable Reason = "not_serviceable"
	ReasonAPIError       Reason = "api_error"
	ReasonUnknown        Reason = "unknown_error"
)

type ChargeRequest struct {
	OriginPin   string
	DestPin     string
	Mode        Mode
	WeightGrams int
	Payment     PaymentMode
}

// Charges is the carrier's itemized parcel charge.
type Charges struct {
	Total         decimal.Decimal `json:"total"`
	Freight       decimal.Decimal `json:"freight"`
	FuelSurcharge decimal.Decimal `json:"fuelSurcharge"`
	CODFee        decimal.Decimal `json:"codFee"`
	Handling      decimal.Decimal `json:"handling"`
	GST           decimal.Decimal `json:"gst"`
}

// Serviceability is the outcome of the two-step pincode + charges lookup.
// Charges is nil when the destination is not serviceable or the charges call
// failed; ChargesErr carries the latter.
type Serviceability struct {
	Serviceable bool
	Reason      Reason
	Err         error
	Charges     *Charges
	ChargesErr  error
}

type pinCodesResponse struct {
	DeliveryCodes []struct {
		PostalCode map[string]any `json:"postal_code"`
	} `json:"delivery_codes"`
}

type chargeResponse struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	ChargeDL    decimal.Decimal `json:"charge_DL"`
	ChargeCOD   decimal.Decimal `json:"charge_COD"`
	ChargeDPH   decimal.Decimal `json:"charge_DPH"`
	ChargeFSC   decimal.Decimal `json:"charge_FSC"`
	TaxData     struct {
		IGST decimal.Decimal `json:"IGST"`
		SGST decimal.Decimal `json:"SGST"`
		CGST decimal.Decimal `json:"CGST"`
	} `json:"tax_data"`
}

// CheckServiceability asks whether req.DestPin is deliverable and, if so,
// fetches the itemized charge for the given mode, weight and payment type.
func (c *Client) CheckServiceability(ctx context.Context, req ChargeRequest) Serviceability {
	var pins pinCodesResponse
	err := c.do(ctx, request{
		endpoint: "pincode",
		base:     c.baseURL,
		method:   http.MethodGet,
		path:     "c/api/pin-codes/json/",
		query:    url.Values{"filter_codes": {req.DestPin}},
		bearer:   c.apiToken,
	}, &pins)
	if err != nil {
		return Serviceability{Reason: classify(err), Err: err}
	}
	if len(pins.DeliveryCodes) == 0 {
		return Serviceability{
			Reason: ReasonNotServiceable,
			Err:    fmt.Errorf("pincode %s is not serviceable", req.DestPin),
		}
	}

	charges, err := c.Charges(ctx, req)
	if err != nil {
		return Serviceability{Serviceable: true, ChargesErr: err}
	}
	return Serviceability{Serviceable: true, Charges: &charges}
}

// Charges fetches the parcel invoice charge.
func (c *Client) Charges(ctx context.Context, req ChargeRequest) (Charges, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeSurface
	}
	var out []chargeResponse
	err := c.do(ctx, request{
		endpoint: "charges",
		base:     c.baseURL,
		method:   http.MethodGet,
		path:     "api/kinko/v1/invoice/charges/.json",
		query: url.Values{
			"md":    {string(mode)},
			"ss":    {"Delivered"},
			"d_pin": {req.DestPin},
			"o_pin": {req.OriginPin},
			"cgm":   {strconv.Itoa(req.WeightGrams)},
			"pt":    {req.Payment.chargeType()},
		},
		bearer: c.apiToken,
	}, &out)
	if err != nil {
		return Charges{}, err
	}
	if len(out) == 0 {
		return Charges{}, fmt.Errorf("%w: empty charge list", ErrMalformedResponse)
	}

	ch := out[0]
	return Charges{
		Total:         ch.TotalAmount,
		Freight:       ch.ChargeDL,
		FuelSurcharge: ch.ChargeFSC,
		CODFee:        ch.ChargeCOD,
		Handling:      ch.ChargeDPH,
		GST:           ch.TaxData.IGST.Add(ch.TaxData.SGST).Add(ch.TaxData.CGST),
	}, nil
}

func classify(err error) Reason {
	var se *StatusError
	switch {
	case isAuthStatus(err):
		return ReasonAuthFailed
	case errors.As(err, &se):
		return ReasonAPIError
	default:
		return ReasonUnknown
	}
}
