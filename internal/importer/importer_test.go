package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront-cart/internal/domain"

	"github.com/shopspring/decimal"
)

type stubProductRepo struct {
	items []domain.Product
	err   error
}

func (s *stubProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.items = append(s.items, p)
	return &p, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `id,sku,name,description,image_url,price,stock_quantity,track_quantity,is_active
00000000-0000-0000-0000-000000000001,SKU-1,Prod One,Desc one,https://example.com/img1.jpg,10.5,5,true,true
,,,,,,,,
,SKU-2,Prod Two,,,3,,false,
,SKU-3,Prod Three,,,1.999,0,true,false`

	repo := &stubProductRepo{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo, nil)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 products imported, got %d", count)
	}

	first := repo.items[0]
	if first.ID != "00000000-0000-0000-0000-000000000001" || first.SKU != "SKU-1" || first.StockQuantity != 5 || !first.TrackQuantity || !first.IsActive {
		t.Fatalf("unexpected product data: %+v", first)
	}
	if !first.Price.Equal(decimal.RequireFromString("10.50")) || first.ImageURL != "https://example.com/img1.jpg" {
		t.Fatalf("unexpected price/image: %+v", first)
	}

	second := repo.items[1]
	if second.TrackQuantity || !second.IsActive || second.StockQuantity != 0 {
		t.Fatalf("expected untracked active product, got %+v", second)
	}

	third := repo.items[2]
	if third.IsActive || !third.Price.Equal(decimal.RequireFromString("2.00")) {
		t.Fatalf("expected inactive product with rounded price, got %+v", third)
	}
}

func TestCSVImporter_MissingColumn(t *testing.T) {
	imp := NewCSVImporter(strings.NewReader("sku,name\nSKU-1,One\n"), &stubProductRepo{}, nil)
	if _, err := imp.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "price") {
		t.Fatalf("expected missing price column error, got %v", err)
	}
}

func TestCSVImporter_InvalidRows(t *testing.T) {
	cases := map[string]string{
		"bad price":    "sku,name,price\nSKU-1,One,abc\n",
		"negative":     "sku,name,price\nSKU-1,One,-1\n",
		"missing name": "sku,name,price\nSKU-1,,1\n",
		"bad stock":    "sku,name,price,stock_quantity\nSKU-1,One,1,-3\n",
		"bad bool":     "sku,name,price,track_quantity\nSKU-1,One,1,maybe\n",
		"bad id":       "id,sku,name,price\nshort,SKU-1,One,1\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &stubProductRepo{}
			count, err := NewCSVImporter(strings.NewReader(data), repo, nil).Run(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			if count != 0 || len(repo.items) != 0 {
				t.Fatalf("expected nothing imported, got %d", count)
			}
		})
	}
}

func TestCSVImporter_StopsOnWriterError(t *testing.T) {
	repo := &stubProductRepo{err: errors.New("db down")}
	_, err := NewCSVImporter(strings.NewReader("sku,name,price\nSKU-1,One,1\n"), repo, nil).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "SKU-1") {
		t.Fatalf("expected wrapped upsert error, got %v", err)
	}
}
