package cart

import (
	"context"

	"storefront-cart/internal/domain"
)

// UpdateFunc receives the current line for a product (nil when absent) and
// returns the line to store, or nil to delete it. Returning an error aborts
// the update and leaves stored state untouched.
type UpdateFunc func(current *domain.CartLine) (*domain.CartLine, error)

// Store persists cart lines keyed by (identity, product).
type Store interface {
	Lines(ctx context.Context, identity string) ([]domain.CartLine, error)
	PutLine(ctx context.Context, line domain.CartLine) error
	DeleteLine(ctx context.Context, identity, productID string) error
	// Update performs an atomic read-modify-write of one line. No other
	// mutation of the same identity interleaves with it.
	Update(ctx context.Context, identity, productID string, fn UpdateFunc) (*domain.CartLine, error)
}
