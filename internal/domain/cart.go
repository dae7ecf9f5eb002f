package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity is the largest quantity a single cart line may hold.
const MaxLineQuantity = 100

// Cart is the set of lines owned by one cart identity. An empty cart is valid.
type Cart struct {
	Identity string     `json:"-"`
	Lines    []CartLine `json:"items"`
}

// CartLine is one product's presence in a cart.
type CartLine struct {
	Identity  string          `json:"-"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`

	// Display is filled from live catalog data for presentation only.
	Display *LineDisplay `json:"display,omitempty"`
}

// LineTotal is the snapshotted unit price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type LineDisplay struct {
	Name          string `json:"name"`
	ImageURL      string `json:"imageUrl,omitempty"`
	StockQuantity int    `json:"stockQuantity"`
	TrackQuantity bool   `json:"trackQuantity"`
	Available     bool   `json:"available"`
}

// Totals is the aggregate view of a cart.
type Totals struct {
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}
