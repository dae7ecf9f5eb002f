package product

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

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("product_repo")}
}

const productColumns = `id, sku, name, COALESCE(description, ''), COALESCE(image_url, ''), price::text, stock_quantity, track_quantity, is_active, created_at`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("get: not found", zap.String("product_id", id))
			return nil, domain.ErrNotFound
		}
		r.logger.Error("get failed", zap.String("product_id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Error("list failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("list", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (id, sku, name, description, image_url, price, stock_quantity, track_quantity, is_active)
VALUES (COALESCE(NULLIF($1, ''), gen_random_uuid()::text), $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6::numeric, $7, $8, $9)
ON CONFLICT (sku) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    image_url = EXCLUDED.image_url,
    price = EXCLUDED.price,
    stock_quantity = EXCLUDED.stock_quantity,
    track_quantity = EXCLUDED.track_quantity,
    is_active = EXCLUDED.is_active,
    updated_at = now()
RETURNING id, created_at
`
	res := product
	err := r.pool.QueryRow(ctx, q,
		product.ID,
		product.SKU,
		product.Name,
		product.Description,
		product.ImageURL,
		product.Price.StringFixed(2),
		product.StockQuantity,
		product.TrackQuantity,
		product.IsActive,
	).Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		r.logger.Error("upsert failed", zap.String("sku", product.SKU), zap.Error(err))
		return nil, err
	}
	if product.ID != "" && res.ID != product.ID {
		return nil, fmt.Errorf("product repo: id mismatch for sku=%s existing_id=%s import_id=%s", product.SKU, res.ID, product.ID)
	}
	r.logger.Debug("upserted", zap.String("sku", res.SKU), zap.String("product_id", res.ID))
	return &res, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.ImageURL, &price, &p.StockQuantity, &p.TrackQuantity, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = parsed
	return &p, nil
}
