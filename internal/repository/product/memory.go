package product

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront-cart/internal/domain"

	"github.com/google/uuid"
)

// Memory is an in-process catalog used when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewMemory(seed ...domain.Product) *Memory {
	m := &Memory{products: make(map[string]domain.Product, len(seed))}
	for _, p := range seed {
		_, _ = m.Upsert(context.Background(), p)
	}
	return m
}

func (m *Memory) GetByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) List(_ context.Context) ([]domain.Product, error) {
	m.mu.RLock()
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Upsert inserts or replaces a product, matching existing rows by SKU like the SQL catalog.
func (m *Memory) Upsert(_ context.Context, product domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.products {
		if existing.SKU == product.SKU && product.SKU != "" {
			product.ID = id
			product.CreatedAt = existing.CreatedAt
			break
		}
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	m.products[product.ID] = product
	return &product, nil
}
