package validation

import "github.com/imrishuroy/go-bakery-orderflow/internal/orders"

// Item represents a single order line item.
type Item struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Price    float64 `json:"price" validate:"gte=0"`            // unit price
	Quantity int     `json:"quantity" validate:"required,min=1"` // must be >= 1
}

// CreateOrderRequest is the payload for POST /orders. Statuses and the order date are not
// part of it: the server always sets them.
type CreateOrderRequest struct {
	CustomerName    string  `json:"customer_name" validate:"required,max=200"`
	CustomerEmail   string  `json:"customer_email" validate:"required,email"`
	CustomerPhone   string  `json:"customer_phone,omitempty" validate:"omitempty,max=40"`
	Items           []Item  `json:"items" validate:"required,min=1,dive"` // at least one item
	DeliveryType    string  `json:"delivery_type" validate:"required,oneof=pickup delivery"`
	DeliveryAddress string  `json:"delivery_address,omitempty" validate:"omitempty,max=500"`
	TotalAmount     float64 `json:"total_amount" validate:"gte=0"` // total the client claims
	IsTestOrder     bool    `json:"is_test_order"`
}

// OrderItems converts the request lines to stored order items.
func (r CreateOrderRequest) OrderItems() []orders.Item {
	out := make([]orders.Item, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, orders.Item{Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}
	return out
}

// PaymentIntentRequest is the payload for POST /payments/intents.
type PaymentIntentRequest struct {
	Amount        float64 `json:"amount" validate:"gt=0"`
	CustomerEmail string  `json:"customer_email" validate:"required,email"`
	CustomerName  string  `json:"customer_name" validate:"required"`
	OrderID       string  `json:"order_id" validate:"required"`
}

// ConfirmPaymentRequest is the payload for POST /payments/confirm.
type ConfirmPaymentRequest struct {
	IntentID string `json:"intent_id" validate:"required"`
	OrderID  string `json:"order_id" validate:"required"`
}

// PaymentStatusRequest is the payload of the admin payment-status override.
type PaymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed"`
}

// FulfillmentRequest is the payload of the admin fulfillment toggle.
type FulfillmentRequest struct {
	Fulfilled *bool `json:"fulfilled" validate:"required"`
}

// SettingRequest is the payload of PUT /admin/settings/:key.
type SettingRequest struct {
	Value interface{} `json:"value"`
}

// LoginRequest is the payload of POST /admin/login.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}
