package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/checkout-service-go/internal/shipping"
)

type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodPrepaid PaymentMethod = "prepaid"
)

type Status string

const (
	StatusProcessing  Status = "processing"
	StatusReadyToShip Status = "ready_to_ship"
	StatusShipped     Status = "shipped"
	StatusDelivered   Status = "delivered"
	StatusCancelled   Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type Address struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone"`
	Line1      string `json:"address1"`
	Line2      string `json:"address2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Pricing is frozen at checkout and copied verbatim onto the confirmed order.
type Pricing struct {
	ItemsPrice    decimal.Decimal `json:"itemsPrice"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	TaxPrice      decimal.Decimal `json:"taxPrice"`
	Discount      decimal.Decimal `json:"discount"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

// PendingOrder is a COD order waiting for its verification code.
type PendingOrder struct {
	ID                   string                    `json:"id"`
	BuyerID              string                    `json:"buyerId"`
	Items                []LineItem                `json:"items"`
	ShippingAddress      Address                   `json:"shippingAddress"`
	Pricing              Pricing                   `json:"pricing"`
	ShippingQuote        shipping.Quote            `json:"shippingQuote"`
	DeliveryEstimate     shipping.DeliveryEstimate `json:"deliveryEstimate"`
	PaymentMethod        PaymentMethod             `json:"paymentMethod"`
	VerificationCodeHash string                    `json:"-"`
	CodeExpiresAt        time.Time                 `json:"codeExpiresAt"`
	CreatedAt            time.Time                 `json:"createdAt"`
}

type ShipmentEditRecord struct {
	At          time.Time `json:"at"`
	Waybills    []string  `json:"waybills"`
	LengthCM    float64   `json:"lengthCm"`
	WidthCM     float64   `json:"widthCm"`
	HeightCM    float64   `json:"heightCm"`
	WeightGrams int       `json:"weightGrams"`
	Fabricated  bool      `json:"fabricated"`
	CarrierErr  string    `json:"carrierError,omitempty"`
}

// ShipmentDetails is filled by manifest creation and changed by shipment edits.
type ShipmentDetails struct {
	Waybills    []string             `json:"waybills,omitempty"`
	LengthCM    float64              `json:"lengthCm,omitempty"`
	WidthCM     float64              `json:"widthCm,omitempty"`
	HeightCM    float64              `json:"heightCm,omitempty"`
	WeightGrams int                  `json:"weightGrams,omitempty"`
	EditHistory []ShipmentEditRecord `json:"editHistory,omitempty"`
}

type ConfirmedOrder struct {
	ID               string                    `json:"id"`
	BuyerID          string                    `json:"buyerId"`
	Items            []LineItem                `json:"items"`
	ShippingAddress  Address                   `json:"shippingAddress"`
	Pricing          Pricing                   `json:"pricing"`
	ShippingQuote    shipping.Quote            `json:"shippingQuote"`
	DeliveryEstimate shipping.DeliveryEstimate `json:"deliveryEstimate"`
	PaymentMethod    PaymentMethod             `json:"paymentMethod"`
	PaymentStatus    PaymentStatus             `json:"paymentStatus"`
	Status           Status                    `json:"status"`
	ShipmentDetails  ShipmentDetails           `json:"shipmentDetails"`
	CreatedAt        time.Time                 `json:"createdAt"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
}

func (p Pricing) Round() Pricing {
	return Pricing{
		ItemsPrice:    p.ItemsPrice.Round(2),
		ShippingPrice: p.ShippingPrice.Round(2),
		TaxPrice:      p.TaxPrice.Round(2),
		Discount:      p.Discount.Round(2),
		TotalPrice:    p.TotalPrice.Round(2),
	}
}
