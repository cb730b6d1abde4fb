package events

const (
	EventsExchange = "ecommerce.events"

	OrderConfirmedRoutingKey         = "order.confirmed.v1"
	VerificationCodeIssuedRoutingKey = "order.verification-code.issued.v1"

	EventTypeOrderConfirmed         = "OrderConfirmed"
	EventTypeVerificationCodeIssued = "VerificationCodeIssued"

	orderConfirmedSchema         = "ecommerce.order.confirmed.v1"
	verificationCodeIssuedSchema = "ecommerce.order.verification-code-issued.v1"

	defaultProducer = "checkout-service"
)
