package product

import (
	"context"
	"errors"
	"os"
	"testing"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func TestMemory_UpsertMatchesBySKU(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(domain.Product{SKU: "SKU1", Name: "One", Price: decimal.RequireFromString("1.50"), IsActive: true})

	list, err := m.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: %v %+v", err, list)
	}
	id := list[0].ID
	if id == "" {
		t.Fatalf("expected generated id")
	}

	updated, err := m.Upsert(ctx, domain.Product{SKU: "SKU1", Name: "One v2", Price: decimal.RequireFromString("2.00")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if updated.ID != id {
		t.Fatalf("expected same id %s, got %s", id, updated.ID)
	}
	got, err := m.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "One v2" || !got.Price.Equal(decimal.RequireFromString("2.00")) {
		t.Fatalf("unexpected product %+v", got)
	}
}

func TestMemory_GetByIDNotFound(t *testing.T) {
	m := NewMemory()
	if _, err := m.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgres_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE cart_lines, products RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	repo := NewPostgres(pool, nil)
	p, err := repo.Upsert(ctx, domain.Product{
		SKU:           "SKU1",
		Name:          "Prod 1",
		Price:         decimal.RequireFromString("19.99"),
		StockQuantity: 5,
		TrackQuantity: true,
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}

	updated, err := repo.Upsert(ctx, domain.Product{
		SKU:           "SKU1",
		Name:          "Prod 1 updated",
		ImageURL:      "https://example.com/1.jpg",
		Price:         decimal.RequireFromString("24.50"),
		StockQuantity: 3,
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if updated.ID != p.ID {
		t.Fatalf("expected same ID after update")
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Prod 1 updated" || got.TrackQuantity || got.StockQuantity != 3 || !got.Price.Equal(decimal.RequireFromString("24.50")) {
		t.Fatalf("unexpected product %+v", got)
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
