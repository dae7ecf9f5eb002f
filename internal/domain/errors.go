package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrProductNotFound   = errors.New("product not found")
	ErrLineNotFound      = errors.New("item not found in cart")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrUnauthorized is reserved for deployments that require an identity.
	ErrUnauthorized = errors.New("unauthorized")
)

// StockError carries the numbers behind an ErrInsufficientStock rejection.
type StockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
