package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/order"
)

type ConfirmedItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderConfirmedPayload struct {
	OrderID              string          `json:"orderId"`
	BuyerID              string          `json:"buyerId"`
	Email                string          `json:"email,omitempty"`
	Items                []ConfirmedItem `json:"items"`
	TotalPrice           decimal.Decimal `json:"totalPrice"`
	PaymentMethod        string          `json:"paymentMethod"`
	ExpectedDeliveryDate string          `json:"expectedDeliveryDate,omitempty"`
	DeliveryFallback     bool            `json:"deliveryFallback"`
	ConfirmedAt          time.Time       `json:"confirmedAt"`
}

// VerificationCodeIssuedPayload goes to the mailer; it is the only place the
// plaintext code leaves the service.
type VerificationCodeIssuedPayload struct {
	PendingOrderID string          `json:"pendingOrderId"`
	BuyerID        string          `json:"buyerId"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Code           string          `json:"code"`
	ExpiresAt      time.Time       `json:"expiresAt"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
}

func orderConfirmedPayload(o order.ConfirmedOrder) OrderConfirmedPayload {
	p := OrderConfirmedPayload{
		OrderID:              o.ID,
		BuyerID:              o.BuyerID,
		Email:                o.ShippingAddress.Email,
		TotalPrice:           o.Pricing.TotalPrice,
		PaymentMethod:        string(o.PaymentMethod),
		ExpectedDeliveryDate: o.DeliveryEstimate.ExpectedDeliveryDate,
		DeliveryFallback:     o.DeliveryEstimate.Fallback,
		ConfirmedAt:          o.CreatedAt,
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, ConfirmedItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return p
}

func verificationCodeIssuedPayload(p order.PendingOrder, code string) VerificationCodeIssuedPayload {
	return VerificationCodeIssuedPayload{
		PendingOrderID: p.ID,
		BuyerID:        p.BuyerID,
		Email:          p.ShippingAddress.Email,
		Phone:          p.ShippingAddress.Phone,
		Code:           code,
		ExpiresAt:      p.CodeExpiresAt,
		TotalPrice:     p.Pricing.TotalPrice,
	}
}
