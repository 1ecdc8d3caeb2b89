// Package catalog holds the fixed product list.
package catalog

import "github.com/shopspring/decimal"

// TestPrice is charged for every product while test pricing is on. It is the
// provider's minimum charge.
var TestPrice = decimal.RequireFromString("0.50")

// Product is one package of cookies.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Cookies     int             `json:"cookies"`
}

var products = []Product{
	{ID: "nibbler", Name: "The Nibbler", Description: "3 cookies", Price: decimal.NewFromInt(15), Cookies: 3},
	{ID: "family-pack", Name: "Family Pack", Description: "6 cookies", Price: decimal.NewFromInt(27), Cookies: 6},
	{ID: "the-pro", Name: "The Pro", Description: "12 cookies", Price: decimal.NewFromInt(50), Cookies: 12},
}

// Products returns the catalog, repriced when testPricing is on.
func Products(testPricing bool) []Product {
	out := make([]Product, len(products))
	copy(out, products)
	if testPricing {
		for i := range out {
			out[i].Price = TestPrice
		}
	}
	return out
}

// CookiesPerPackage returns how many cookies a product name stands for, 0 when unknown.
func CookiesPerPackage(name string) int {
	for _, p := range products {
		if p.Name == name {
			return p.Cookies
		}
	}
	return 0
}
