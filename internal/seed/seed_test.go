package seed

import (
	"context"
	"errors"
	"testing"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/repository/product"
)

type failingWriter struct{}

func (failingWriter) Upsert(_ context.Context, _ domain.Product) (*domain.Product, error) {
	return nil, errors.New("db down")
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := product.NewMemory()

	if err := Apply(ctx, repo); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := Apply(ctx, repo); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != len(DemoProducts()) {
		t.Fatalf("expected %d products, got %d", len(DemoProducts()), len(items))
	}
}

func TestDemoProductsCoverStockModes(t *testing.T) {
	var tracked, untracked int
	for _, p := range DemoProducts() {
		if !p.IsActive || p.Price.IsZero() {
			t.Fatalf("demo product %s must be active and priced", p.SKU)
		}
		if p.TrackQuantity {
			tracked++
		} else {
			untracked++
		}
	}
	if tracked == 0 || untracked == 0 {
		t.Fatalf("expected tracked and untracked demo products, got %d/%d", tracked, untracked)
	}
}

func TestApplyWrapsWriterError(t *testing.T) {
	if err := Apply(context.Background(), failingWriter{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDemoProductsHaveStableIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, p := range DemoProducts() {
		if p.ID == "" {
			t.Fatalf("demo product %s has no id", p.SKU)
		}
		if seen[p.ID] {
			t.Fatalf("duplicate demo product id %s", p.ID)
		}
		seen[p.ID] = true
	}

	repo := product.NewMemory(DemoProducts()...)
	got, err := repo.GetByID(context.Background(), "demo-mug")
	if err != nil {
		t.Fatalf("get demo-mug: %v", err)
	}
	if got.SKU != "SKU-DEMO-MUG" || got.StockQuantity != 5 {
		t.Fatalf("unexpected demo-mug: %+v", got)
	}

	again := product.NewMemory(DemoProducts()...)
	if _, err := again.GetByID(context.Background(), "demo-mug"); err != nil {
		t.Fatalf("demo-mug id not stable across restarts: %v", err)
	}
}
