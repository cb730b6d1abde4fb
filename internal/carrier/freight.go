package carrier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Box is one package of a freight shipment, in centimetres.
type Box struct {
	LengthCM float64 `json:"length_cm"`
	WidthCM  float64 `json:"width_cm"`
	HeightCM float64 `json:"height_cm"`
	Count    int     `json:"box_count"`
}

type FreightRequest struct {
	Boxes         []Box
	WeightGrams   int
	SourcePin     string
	DestPin       string
	Payment       PaymentMode
	InvoiceAmount decimal.Decimal
}

type FreightEstimate struct {
	Total         decimal.Decimal `json:"total"`
	BaseFreight   decimal.Decimal `json:"baseFreight"`
	FuelSurcharge decimal.Decimal `json:"fuelSurcharge"`
	OtherCharges  decimal.Decimal `json:"otherCharges"`
}

type freightRequestBody struct {
	Dimensions    []Box           `json:"dimensions"`
	WeightG       int             `json:"weight_g"`
	SourcePin     string          `json:"source_pin"`
	ConsigneePin  string          `json:"consignee_pin"`
	PaymentMode   string          `json:"payment_mode"`
	InvoiceAmount decimal.Decimal `json:"inv_amount"`
	FreightMode   string          `json:"freight_mode"`
}

type freightResponse struct {
	Data struct {
		Total        decimal.Decimal `json:"total"`
		PriceBreakup struct {
			BaseFreight   decimal.Decimal `json:"base_freight_charge"`
			FuelSurcharge decimal.Decimal `json:"fuel_surcharge"`
			OtherCharges  decimal.Decimal `json:"other_charges"`
		} `json:"price_breakup"`
	} `json:"data"`
}

// B2BClient prices heavy shipments on the freight API using cached tokens.
type B2BClient struct {
	client *Client
	auth   *AuthCache
}

func NewB2BClient(client *Client, auth *AuthCache) *B2BClient {
	return &B2BClient{client: client, auth: auth}
}

// EstimateFreight posts a freight estimate. A 401 invalidates the cached token
// and the request is retried exactly once with a fresh one.
func (b *B2BClient) EstimateFreight(ctx context.Context, req FreightRequest) (FreightEstimate, error) {
	est, err := b.estimateOnce(ctx, req)
	if !IsUnauthorized(err) {
		return est, err
	}

	b.client.logger.Info().Msg("freight estimate unauthorized, refreshing token")
	if err := b.auth.Invalidate(ctx); err != nil {
		return FreightEstimate{}, fmt.Errorf("invalidate token: %w", err)
	}
	return b.estimateOnce(ctx, req)
}

func (b *B2BClient) estimateOnce(ctx context.Context, req FreightRequest) (FreightEstimate, error) {
	token, err := b.auth.Token(ctx)
	if err != nil {
		return FreightEstimate{}, err
	}

	body := freightRequestBody{
		Dimensions:    req.Boxes,
		WeightG:       req.WeightGrams,
		SourcePin:     req.SourcePin,
		ConsigneePin:  req.DestPin,
		PaymentMode:   string(req.Payment),
		InvoiceAmount: req.InvoiceAmount,
		FreightMode:   "fop",
	}

	var out freightResponse
	err = b.client.do(ctx, request{
		endpoint: "b2b_freight",
		base:     b.client.b2bURL,
		method:   http.MethodPost,
		path:     "freight/estimate",
		bearer:   token,
		body:     body,
	}, &out)
	if err != nil {
		return FreightEstimate{}, err
	}

	return FreightEstimate{
		Total:         out.Data.Total,
		BaseFreight:   out.Data.PriceBreakup.BaseFreight,
		FuelSurcharge: out.Data.PriceBreakup.FuelSurcharge,
		OtherCharges:  out.Data.PriceBreakup.OtherCharges,
	}, nil
}
