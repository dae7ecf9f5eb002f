package product

import (
	"context"

	"storefront-cart/internal/domain"
)

// Repository is the catalog collaborator the cart reads from.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}
