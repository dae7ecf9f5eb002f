package cart

import (
	"context"
	"errors"
	"fmt"

	"storefront-cart/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns the durable store backed by the cart_lines table.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("cart_repo")}
}

// Lines joins live catalog data for display; the stored snapshot stays authoritative for price.
func (r *postgresRepo) Lines(ctx context.Context, identity string) ([]domain.CartLine, error) {
	const q = `
SELECT cl.product_id, cl.quantity, cl.unit_price_snapshot::text, cl.created_at, cl.updated_at,
       p.name, COALESCE(p.image_url, ''), p.stock_quantity, p.track_quantity, p.is_active
FROM cart_lines cl
LEFT JOIN products p ON p.id = cl.product_id
WHERE cl.cart_identity = $1
ORDER BY cl.created_at ASC
`
	rows, err := r.pool.Query(ctx, q, identity)
	if err != nil {
		r.logger.Error("lines query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var (
			line     domain.CartLine
			price    string
			name     *string
			image    *string
			stock    *int
			tracked  *bool
			isActive *bool
		)
		if err := rows.Scan(&line.ProductID, &line.Quantity, &price, &line.CreatedAt, &line.UpdatedAt,
			&name, &image, &stock, &tracked, &isActive); err != nil {
			return nil, err
		}
		if line.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse snapshot %q: %w", price, err)
		}
		line.Identity = identity
		if name != nil {
			line.Display = &domain.LineDisplay{
				Name:          *name,
				ImageURL:      deref(image),
				StockQuantity: deref(stock),
				TrackQuantity: deref(tracked),
				Available:     deref(isActive),
			}
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *postgresRepo) PutLine(ctx context.Context, line domain.CartLine) error {
	_, err := upsertLine(ctx, r.pool, line)
	return err
}

func (r *postgresRepo) DeleteLine(ctx context.Context, identity, productID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE cart_identity = $1 AND product_id = $2`, identity, productID)
	return err
}

// Update serializes mutations per identity with a transaction-scoped advisory
// lock, which also covers the insert of a line that does not exist yet.
func (r *postgresRepo) Update(ctx context.Context, identity, productID string, fn UpdateFunc) (*domain.CartLine, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, identity); err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	current, err := selectLine(ctx, tx, identity, productID)
	if err != nil {
		return nil, err
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	var stored *domain.CartLine
	if next == nil {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_identity = $1 AND product_id = $2`, identity, productID); err != nil {
			return nil, err
		}
	} else {
		next.Identity = identity
		next.ProductID = productID
		if stored, err = upsertLine(ctx, tx, *next); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return stored, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func selectLine(ctx context.Context, q querier, identity, productID string) (*domain.CartLine, error) {
	const stmt = `
SELECT quantity, unit_price_snapshot::text, created_at, updated_at
FROM cart_lines
WHERE cart_identity = $1 AND product_id = $2
FOR UPDATE
`
	line := domain.CartLine{Identity: identity, ProductID: productID}
	var price string
	err := q.QueryRow(ctx, stmt, identity, productID).Scan(&line.Quantity, &price, &line.CreatedAt, &line.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if line.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse snapshot %q: %w", price, err)
	}
	return &line, nil
}

func upsertLine(ctx context.Context, q querier, line domain.CartLine) (*domain.CartLine, error) {
	const stmt = `
INSERT INTO cart_lines (cart_identity, product_id, quantity, unit_price_snapshot)
VALUES ($1, $2, $3, $4::numeric)
ON CONFLICT (cart_identity, product_id) DO UPDATE SET
    quantity = EXCLUDED.quantity,
    unit_price_snapshot = EXCLUDED.unit_price_snapshot,
    updated_at = now()
RETURNING quantity, unit_price_snapshot::text, created_at, updated_at
`
	out := domain.CartLine{Identity: line.Identity, ProductID: line.ProductID}
	var price string
	if err := q.QueryRow(ctx, stmt, line.Identity, line.ProductID, line.Quantity, line.UnitPrice.StringFixed(2)).
		Scan(&out.Quantity, &price, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if out.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse snapshot %q: %w", price, err)
	}
	return &out, nil
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}
