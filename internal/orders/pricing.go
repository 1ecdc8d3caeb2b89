package orders

import "github.com/shopspring/decimal"

// DeliveryFee is added to the item subtotal for delivery orders.
var DeliveryFee = decimal.NewFromInt(10)

// Subtotal is sum(price * quantity) over items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// ExpectedTotal is the subtotal plus the delivery fee when deliveryType is delivery.
func ExpectedTotal(items []Item, deliveryType string) decimal.Decimal {
	total := Subtotal(items)
	if deliveryType == DeliveryDelivery {
		total = total.Add(DeliveryFee)
	}
	return total
}

// TotalMatches compares a client-supplied total with ExpectedTotal at cent precision.
func TotalMatches(items []Item, deliveryType string, total float64) bool {
	want := ExpectedTotal(items, deliveryType).Round(2)
	got := decimal.NewFromFloat(total).Round(2)
	return want.Equal(got)
}
