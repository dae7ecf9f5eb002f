package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog row the cart reads prices and stock from.
type Product struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	TrackQuantity bool            `json:"trackQuantity"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// StockInfo is the read-only projection of a product used by cart rules.
type StockInfo struct {
	UnitPrice     decimal.Decimal
	StockQuantity int
	TrackQuantity bool
}

func (p Product) StockInfo() StockInfo {
	return StockInfo{
		UnitPrice:     p.Price,
		StockQuantity: p.StockQuantity,
		TrackQuantity: p.TrackQuantity,
	}
}

// Allows reports whether quantity fits under the stock ceiling.
func (s StockInfo) Allows(quantity int) bool {
	return !s.TrackQuantity || quantity <= s.StockQuantity
}
