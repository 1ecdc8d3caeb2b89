// Package reports builds the admin dashboard views over stored orders.
package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-bakery-orderflow/internal/catalog"
	"github.com/imrishuroy/go-bakery-orderflow/internal/orders"
)

// Week summarizes the orders placed between a Sunday and the following Saturday.
type Week struct {
	WeekStart    string          `json:"week_start"`
	WeekEnd      string          `json:"week_end"`
	Label        string          `json:"label"`
	Pickup       []orders.Order  `json:"pickup"`
	Delivery     []orders.Order  `json:"delivery"`
	TotalOrders  int             `json:"total_orders"`
	TotalCookies int             `json:"total_cookies"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// GroupByWeek buckets orders by the week of their order date, newest week first.
// Within a week the input order is preserved.
func GroupByWeek(list []orders.Order) []Week {
	byStart := map[string]*Week{}
	for _, o := range list {
		start := weekStart(orderDay(o))
		key := start.Format(orders.OrderDateLayout)

		w, ok := byStart[key]
		if !ok {
			end := start.AddDate(0, 0, 6)
			w = &Week{
				WeekStart:    key,
				WeekEnd:      end.Format(orders.OrderDateLayout),
				Label:        weekLabel(start, end),
				Pickup:       []orders.Order{},
				Delivery:     []orders.Order{},
				TotalRevenue: decimal.Zero,
			}
			byStart[key] = w
		}

		if o.DeliveryType == orders.DeliveryDelivery {
			w.Delivery = append(w.Delivery, o)
		} else {
			w.Pickup = append(w.Pickup, o)
		}
		w.TotalOrders++
		w.TotalCookies += cookies(o.Items)
		w.TotalRevenue = w.TotalRevenue.Add(decimal.NewFromFloat(o.TotalAmount))
	}

	weeks := make([]Week, 0, len(byStart))
	for _, w := range byStart {
		weeks = append(weeks, *w)
	}
	// YYYY-MM-DD sorts chronologically as a string
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].WeekStart > weeks[j].WeekStart })
	return weeks
}

func orderDay(o orders.Order) time.Time {
	if d, err := time.Parse(orders.OrderDateLayout, o.OrderDate); err == nil {
		return d
	}
	c := o.CreatedAt.UTC()
	return time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, time.UTC)
}

func weekStart(day time.Time) time.Time {
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func cookies(items []orders.Item) int {
	total := 0
	for _, it := range items {
		total += catalog.CookiesPerPackage(it.Name) * it.Quantity
	}
	return total
}

// weekLabel renders "Dec 1 - 7, 2025", "Nov 30 - Dec 6, 2025" or "Dec 28, 2025 - Jan 3, 2026".
func weekLabel(start, end time.Time) string {
	switch {
	case start.Year() != end.Year():
		return fmt.Sprintf("%s - %s", start.Format("Jan 2, 2006"), end.Format("Jan 2, 2006"))
	case start.Month() != end.Month():
		return fmt.Sprintf("%s - %s, %d", start.Format("Jan 2"), end.Format("Jan 2"), start.Year())
	default:
		return fmt.Sprintf("%s - %d, %d", start.Format("Jan 2"), end.Day(), start.Year())
	}
}
