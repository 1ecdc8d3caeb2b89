package orders

import "time"

// Payment statuses. They only move forward through the checked transition:
// pending -> confirmed -> completed.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentCompleted = "completed"
)

// Fulfillment statuses, independent of payment.
const (
	FulfillmentPending   = "pending"
	FulfillmentFulfilled = "fulfilled"
)

// Delivery types.
const (
	DeliveryPickup   = "pickup"
	DeliveryDelivery = "delivery"
)

// OrderDateLayout is the calendar-date format of Order.OrderDate.
const OrderDateLayout = "2006-01-02"

var paymentRank = map[string]int{
	PaymentPending:   0,
	PaymentConfirmed: 1,
	PaymentCompleted: 2,
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	_, ok := paymentRank[s]
	return ok
}

// ValidFulfillmentStatus reports whether s is a known fulfillment status.
func ValidFulfillmentStatus(s string) bool {
	return s == FulfillmentPending || s == FulfillmentFulfilled
}

// IsForward reports whether from -> to advances the payment status.
func IsForward(from, to string) bool {
	f, ok1 := paymentRank[from]
	t, ok2 := paymentRank[to]
	return ok1 && ok2 && t > f
}

// Item is one ordered line.
type Item struct {
	Name     string  `dynamodbav:"name" json:"name"`
	Price    float64 `dynamodbav:"price" json:"price"`
	Quantity int     `dynamodbav:"quantity" json:"quantity"`
}

// Order represents the item stored in the orders DynamoDB table.
type Order struct {
	OrderID           string    `dynamodbav:"order_id" json:"order_id"` // PK
	CustomerName      string    `dynamodbav:"customer_name" json:"customer_name"`
	CustomerEmail     string    `dynamodbav:"customer_email" json:"customer_email"`
	CustomerPhone     string    `dynamodbav:"customer_phone,omitempty" json:"customer_phone,omitempty"`
	Items             []Item    `dynamodbav:"items" json:"items"`
	DeliveryType      string    `dynamodbav:"delivery_type" json:"delivery_type"`
	DeliveryAddress   string    `dynamodbav:"delivery_address,omitempty" json:"delivery_address,omitempty"`
	TotalAmount       float64   `dynamodbav:"total_amount" json:"total_amount"`
	OrderDate         string    `dynamodbav:"order_date" json:"order_date"`
	PaymentStatus     string    `dynamodbav:"payment_status" json:"payment_status"`
	FulfillmentStatus string    `dynamodbav:"fulfillment_status" json:"fulfillment_status"`
	IsTestOrder       bool      `dynamodbav:"is_test_order" json:"is_test_order"`
	CreatedAt         time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt         time.Time `dynamodbav:"updated_at" json:"updated_at"`
}

// ListFilter selects which orders List returns.
type ListFilter string

const (
	FilterAll         ListFilter = "all"
	FilterExcludeTest ListFilter = "real"
	FilterOnlyTest    ListFilter = "test"
)

// ParseFilter maps a query value to a ListFilter; empty means all.
func ParseFilter(s string) (ListFilter, bool) {
	switch ListFilter(s) {
	case "", FilterAll:
		return FilterAll, true
	case FilterExcludeTest:
		return FilterExcludeTest, true
	case FilterOnlyTest:
		return FilterOnlyTest, true
	}
	return "", false
}

func (f ListFilter) match(o Order) bool {
	switch f {
	case FilterExcludeTest:
		return !o.IsTestOrder
	case FilterOnlyTest:
		return o.IsTestOrder
	default:
		return true
	}
}
