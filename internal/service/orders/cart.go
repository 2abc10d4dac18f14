package orders

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vovakirdan/ordercast-server/internal/store"
)

// LineTotal returns quantity × unit price in cents.
func LineTotal(item store.OrderItem) int64 {
	return int64(item.Quantity) * item.UnitPriceCents
}

// CartTotal sums every line of the cart in cents.
func CartTotal(items []store.OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += LineTotal(item)
	}
	return total
}

// FormatItems renders a cart as "2x Burger, 1x Fries".
func FormatItems(items []store.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, strconv.Itoa(item.Quantity)+"x "+item.Name)
	}
	return strings.Join(parts, ", ")
}

// FormatPrice renders cents as a decimal amount, e.g. 1250 -> "12.50".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
