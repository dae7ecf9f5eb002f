package cart

import (
	"storefront-cart/internal/domain"

	"github.com/shopspring/decimal"
)

// Summarize totals a cart from the stored price snapshots. It never consults
// the catalog, so the subtotal does not move when catalog prices change.
func Summarize(lines []domain.CartLine) domain.Totals {
	totals := domain.Totals{Subtotal: decimal.Zero}
	for _, l := range lines {
		totals.ItemCount += l.Quantity
		totals.Subtotal = totals.Subtotal.Add(l.LineTotal())
	}
	return totals
}
