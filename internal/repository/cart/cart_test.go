package cart

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func TestPostgres_UpdateInsertMergeDelete(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)
	productID := insertProduct(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	add := func(delta int, price string) UpdateFunc {
		return func(cur *domain.CartLine) (*domain.CartLine, error) {
			next := domain.CartLine{Quantity: delta, UnitPrice: decimal.RequireFromString(price)}
			if cur != nil {
				next.Quantity += cur.Quantity
			}
			return &next, nil
		}
	}

	if _, err := repo.Update(ctx, "tok", productID, add(2, "10.00")); err != nil {
		t.Fatalf("Update insert: %v", err)
	}
	got, err := repo.Update(ctx, "tok", productID, add(3, "12.00"))
	if err != nil {
		t.Fatalf("Update merge: %v", err)
	}
	if got.Quantity != 5 || !got.UnitPrice.Equal(decimal.RequireFromString("12.00")) {
		t.Fatalf("unexpected merged line %+v", got)
	}

	lines, err := repo.Lines(ctx, "tok")
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(lines) != 1 || lines[0].Display == nil || lines[0].Display.Name != "Prod" {
		t.Fatalf("unexpected lines %+v", lines)
	}

	if _, err := repo.Update(ctx, "tok", productID, func(*domain.CartLine) (*domain.CartLine, error) { return nil, nil }); err != nil {
		t.Fatalf("Update delete: %v", err)
	}
	lines, err = repo.Lines(ctx, "tok")
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", lines)
	}
}

func TestPostgres_UpdateErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)
	productID := insertProduct(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	if err := repo.PutLine(ctx, domain.CartLine{Identity: "tok", ProductID: productID, Quantity: 3, UnitPrice: decimal.NewFromInt(1)}); err != nil {
		t.Fatalf("PutLine: %v", err)
	}
	boom := errors.New("boom")
	_, err := repo.Update(ctx, "tok", productID, func(*domain.CartLine) (*domain.CartLine, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	lines, err := repo.Lines(ctx, "tok")
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 3 {
		t.Fatalf("state changed after failed update: %+v", lines)
	}
}

func TestPostgres_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	resetTables(ctx, t, pool)
	productID := insertProduct(ctx, t, pool)
	repo := NewPostgres(pool, nil)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "tok", productID, func(cur *domain.CartLine) (*domain.CartLine, error) {
				next := domain.CartLine{Quantity: 1, UnitPrice: decimal.NewFromInt(1)}
				if cur != nil {
					next.Quantity += cur.Quantity
				}
				return &next, nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent update: %v", err)
		}
	}
	lines, err := repo.Lines(ctx, "tok")
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != n {
		t.Fatalf("expected quantity %d, got %+v", n, lines)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE cart_lines, products RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func insertProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO products (sku, name, price, stock_quantity, track_quantity)
		VALUES ('SKU1', 'Prod', 10.00, 50, true)
		RETURNING id
	`).Scan(&id)
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return id
}
