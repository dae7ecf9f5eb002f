package seed

import (
	"context"
	"fmt"

	"storefront-cart/internal/domain"

	"github.com/shopspring/decimal"
)

// ProductWriter is the catalog write side used for seeding.
type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type productSeed struct {
	ID          string
	SKU         string
	Name        string
	Description string
	ImageURL    string
	Price       string
	Stock       int
	Tracked     bool
}

var demoProducts = []productSeed{
	{
		ID:          "demo-tshirt",
		SKU:         "SKU-DEMO-TSHIRT",
		Name:        "Demo T-Shirt",
		Description: "Soft cotton tee for demo purposes",
		ImageURL:    "https://images.example.com/demo-tshirt.jpg",
		Price:       "19.99",
		Stock:       25,
		Tracked:     true,
	},
	{
		ID:          "demo-mug",
		SKU:         "SKU-DEMO-MUG",
		Name:        "Demo Mug",
		Description: "Ceramic mug with demo logo",
		ImageURL:    "https://images.example.com/demo-mug.jpg",
		Price:       "12.99",
		Stock:       5,
		Tracked:     true,
	},
	{
		ID:          "demo-ebook",
		SKU:         "SKU-DEMO-EBOOK",
		Name:        "Demo E-Book",
		Description: "Digital download, never runs out",
		Price:       "7.50",
		Tracked:     false,
	},
}

// DemoProducts returns the demo catalog: one roomy tracked product, one with
// scarce stock and one untracked digital product. IDs are fixed so clients of
// an ephemeral server can address them without listing the catalog.
func DemoProducts() []domain.Product {
	out := make([]domain.Product, 0, len(demoProducts))
	for _, p := range demoProducts {
		out = append(out, domain.Product{
			ID:            p.ID,
			SKU:           p.SKU,
			Name:          p.Name,
			Description:   p.Description,
			ImageURL:      p.ImageURL,
			Price:         decimal.RequireFromString(p.Price),
			StockQuantity: p.Stock,
			TrackQuantity: p.Tracked,
			IsActive:      true,
		})
	}
	return out
}

// Apply upserts the demo catalog. It is idempotent: products are matched by SKU.
func Apply(ctx context.Context, w ProductWriter) error {
	for _, p := range DemoProducts() {
		if _, err := w.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.SKU, err)
		}
	}
	return nil
}
