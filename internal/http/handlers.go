package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/carrier"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/shipment"
	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/shipping"
)

// HeaderUserID carries the buyer id set by the API gateway.
const HeaderUserID = "X-User-Id"

type CODCheckout interface {
	PlaceCOD(ctx context.Context, req order.PlaceCODRequest) (*order.PlaceCODResult, error)
}

type CODFinalizer interface {
	Finalize(ctx context.Context, pendingOrderID, code string) (string, error)
}

type RateEstimator interface {
	Estimate(ctx context.Context, req shipping.RateRequest) (shipping.Quote, error)
}

type DeliveryEstimator interface {
	Estimate(ctx context.Context, req shipping.EstimateRequest) (shipping.DeliveryEstimate, error)
}

type ShipmentEditor interface {
	Edit(ctx context.Context, orderID string, req shipment.Request) (*shipment.Result, error)
}

type Handler struct {
	checkout  CODCheckout
	finalizer CODFinalizer
	rates     RateEstimator
	delivery  DeliveryEstimator
	shipments ShipmentEditor
}

func NewHandler(checkout CODCheckout, finalizer CODFinalizer, rates RateEstimator, delivery DeliveryEstimator, shipments ShipmentEditor) *Handler {
	return &Handler{
		checkout:  checkout,
		finalizer: finalizer,
		rates:     rates,
		delivery:  delivery,
		shipments: shipments,
	}
}

type placeCODRequest struct {
	ShippingAddress order.Address   `json:"shippingAddress"`
	WeightGrams     int             `json:"weightGrams"`
	Discount        decimal.Decimal `json:"discount"`
	Mode            string          `json:"mode"`
	PickupDate      string          `json:"pickupDate"`
}

type placeCODResponse struct {
	PendingOrderID string                    `json:"pendingOrderId"`
	ExpiresAt      time.Time                 `json:"expiresAt"`
	Pricing        order.Pricing             `json:"pricing"`
	Shipping       shipping.Quote            `json:"shipping"`
	Delivery       shipping.DeliveryEstimate `json:"delivery"`
}

// PlaceCOD creates a pending COD order. The verification code goes to the
// buyer through the notifier and is never part of the response.
func (h *Handler) PlaceCOD(w http.ResponseWriter, r *http.Request) {
	buyerID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if buyerID == "" {
		writeError(w, http.StatusBadRequest, "missing required header: "+HeaderUserID)
		return
	}
	var body placeCODRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	mode, err := carrier.ParseMode(body.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.checkout.PlaceCOD(r.Context(), order.PlaceCODRequest{
		BuyerID:     buyerID,
		Address:     body.ShippingAddress,
		WeightGrams: body.WeightGrams,
		Discount:    body.Discount,
		Mode:        mode,
		PickupDate:  body.PickupDate,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	p := res.Order
	writeJSON(w, http.StatusCreated, placeCODResponse{
		PendingOrderID: p.ID,
		ExpiresAt:      p.CodeExpiresAt,
		Pricing:        p.Pricing,
		Shipping:       p.ShippingQuote,
		Delivery:       p.DeliveryEstimate,
	})
}

type verifyRequest struct {
	Code string `json:"code"`
}

func (h *Handler) VerifyCOD(w http.ResponseWriter, r *http.Request) {
	pendingID := chi.URLParam(r, "pendingOrderId")
	var body verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	orderID, err := h.finalizer.Finalize(r.Context(), pendingID, body.Code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"orderId": orderID})
}

func (h *Handler) ShippingRates(w http.ResponseWriter, r *http.Request) {
	var req shipping.RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	payment, err := carrier.ParsePaymentMode(string(req.Payment))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Payment = payment

	quote, err := h.rates.Estimate(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *Handler) DeliveryEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := carrier.ParseMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	est, err := h.delivery.Estimate(r.Context(), shipping.EstimateRequest{
		OriginPin:  q.Get("origin"),
		DestPin:    q.Get("destination"),
		Mode:       mode,
		PickupHint: q.Get("pickupDate"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (h *Handler) EditShipment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	var req shipment.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.shipments.Edit(r.Context(), orderID, req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
