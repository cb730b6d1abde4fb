package carrier

import (
	"context"
	"net/http"
)

// ShipmentEdit changes the packed dimensions and weight of a manifested parcel.
type ShipmentEdit struct {
	Waybill     string  `json:"waybill"`
	LengthCM    float64 `json:"shipment_length"`
	WidthCM     float64 `json:"shipment_width"`
	HeightCM    float64 `json:"shipment_height"`
	WeightGrams int     `json:"weight"`
}

func (c *Client) EditShipment(ctx context.Context, edit ShipmentEdit) error {
	return c.do(ctx, request{
		endpoint: "edit_shipment",
		base:     c.baseURL,
		method:   http.MethodPost,
		path:     "api/p/edit",
		bearer:   c.apiToken,
		body:     edit,
	}, nil)
}
