package orders

// ShippingType is a custom type that represents how fast an order ships.
type ShippingType string

// CarrierType is a custom type that represents the carrier handling the shipment.
type CarrierType string

// PaymentType is a custom type that represents the payment method of an order.
type PaymentType string

const (
	ShippingUrgent   ShippingType = "URGENT"
	ShippingEconomic ShippingType = "ECONOMIC"

	CarrierCorreios CarrierType = "CORREIOS"
	CarrierFedex    CarrierType = "FEDEX"

	PaymentCash       PaymentType = "CASH"
	PaymentCreditCard PaymentType = "CREDIT_CARD"
	PaymentDebitCard  PaymentType = "DEBIT_CARD"
)

// ValidShippingType checks the value against the closed set.
func ValidShippingType(s ShippingType) bool {
	return s == ShippingUrgent || s == ShippingEconomic
}

// ValidCarrierType checks the value against the closed set.
func ValidCarrierType(c CarrierType) bool {
	return c == CarrierCorreios || c == CarrierFedex
}

// ValidPaymentType checks the value against the closed set.
func ValidPaymentType(p PaymentType) bool {
	return p == PaymentCash || p == PaymentCreditCard || p == PaymentDebitCard
}

// OrderProduct is a single line item: the product code and its unit price.
type OrderProduct struct {
	Code  string
	Price Money // per-unit in cents
}

// Shipping is the shipping selection of an order. Tagged because it travels
// inside event payloads as-is.
type Shipping struct {
	Type    ShippingType `json:"type"`
	Carrier CarrierType  `json:"carrier"`
}

// Billing is the billing selection of an order. TotalPrice is computed, never
// supplied. Serialized in cents.
type Billing struct {
	Payment    PaymentType `json:"payment"`
	TotalPrice Money       `json:"totalPrice"`
}

// Order is the immutable order aggregate. Identity is (Email, ID).
type Order struct {
	Email     string
	ID        string
	CreatedAt int64 // epoch milliseconds, assigned at build time
	Shipping  Shipping
	Billing   Billing
	Products  []OrderProduct
}

// ProductCodes returns the codes of the order's line items, in item order.
func (order *Order) ProductCodes() []string {
	codes := make([]string, len(order.Products))
	for i, p := range order.Products {
		codes[i] = p.Code
	}
	return codes
}

// Product is a catalog product as resolved from the product store.
type Product struct {
	ID    string
	Code  string
	Price Money // in cents
}
