// Package notify renders and delivers order confirmation emails.
//
// The workflow hands a Confirmation to a Dispatcher once an order's payment is confirmed.
// QueueDispatcher pushes it onto SQS for the worker; DirectDispatcher renders and sends
// it in-process through a Sink such as the SES Mailer.
package notify

import "github.com/imrishuroy/go-bakery-orderflow/internal/orders"

// Confirmation is the snapshot of an order taken at the moment its payment was confirmed.
type Confirmation struct {
	OrderID         string        `json:"order_id"`
	CustomerName    string        `json:"customer_name"`
	CustomerEmail   string        `json:"customer_email"`
	Items           []orders.Item `json:"items"`
	TotalAmount     float64       `json:"total_amount"`
	DeliveryType    string        `json:"delivery_type"`
	DeliveryAddress string        `json:"delivery_address,omitempty"`
}

// FromOrder copies the fields a confirmation needs.
func FromOrder(o orders.Order) Confirmation {
	items := make([]orders.Item, len(o.Items))
	copy(items, o.Items)
	return Confirmation{
		OrderID:         o.OrderID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		Items:           items,
		TotalAmount:     o.TotalAmount,
		DeliveryType:    o.DeliveryType,
		DeliveryAddress: o.DeliveryAddress,
	}
}
