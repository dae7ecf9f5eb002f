package cart

import (
	"context"
	"sync"
	"time"

	"storefront-cart/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type cartEntry struct {
	mu    sync.Mutex
	lines map[string]domain.CartLine

	// refs counts in-flight writers; guarded by Memory.mu.
	refs int
}

// Memory is the ephemeral, process-lifetime store. Carts are bounded by an
// LRU of maxCarts identities and expire after ttl without access.
//
// Lock order is entry.mu before Memory.mu.
type Memory struct {
	mu       sync.Mutex
	carts    *expirable.LRU[string, *cartEntry]
	inflight map[string]*cartEntry
	now      func() time.Time
}

func NewMemory(maxCarts int, ttl time.Duration) *Memory {
	return &Memory{
		carts:    expirable.NewLRU[string, *cartEntry](maxCarts, nil, ttl),
		inflight: make(map[string]*cartEntry),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// lookup returns the cart for identity, or nil. A stored cart has its expiry
// reset: the LRU's Get only refreshes recency.
func (m *Memory) lookup(identity string) *cartEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.inflight[identity]; ok {
		return e
	}
	e, ok := m.carts.Get(identity)
	if !ok {
		return nil
	}
	m.carts.Add(identity, e)
	return e
}

// acquire pins the cart for a write. Concurrent writers of one identity share
// the same entry even if it is not stored yet or gets evicted meanwhile.
func (m *Memory) acquire(identity string) *cartEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.inflight[identity]
	if !ok {
		if e, ok = m.carts.Get(identity); !ok {
			e = &cartEntry{lines: make(map[string]domain.CartLine)}
		}
		m.inflight[identity] = e
	}
	e.refs++
	return e
}

// release unpins e. The caller still holds e.mu. After a change an occupied
// cart is stored with a fresh expiry and an emptied one is dropped; an
// unchanged cart is left as it was, so failed writes never claim a slot.
func (m *Memory) release(identity string, e *cartEntry, changed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.inflight, identity)
	}
	if !changed {
		return
	}
	if len(e.lines) > 0 {
		m.carts.Add(identity, e)
		return
	}
	if cur, ok := m.carts.Peek(identity); ok && cur == e {
		m.carts.Remove(identity)
	}
}

func (m *Memory) Lines(_ context.Context, identity string) ([]domain.CartLine, error) {
	e := m.lookup(identity)
	if e == nil {
		return []domain.CartLine{}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.CartLine, 0, len(e.lines))
	for _, l := range e.lines {
		out = append(out, l)
	}
	return out, nil
}

func (m *Memory) PutLine(_ context.Context, line domain.CartLine) error {
	e := m.acquire(line.Identity)
	e.mu.Lock()
	defer e.mu.Unlock()
	m.put(e, line)
	m.release(line.Identity, e, true)
	return nil
}

func (m *Memory) DeleteLine(_ context.Context, identity, productID string) error {
	e := m.acquire(identity)
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.lines[productID]
	delete(e.lines, productID)
	m.release(identity, e, ok)
	return nil
}

func (m *Memory) Update(_ context.Context, identity, productID string, fn UpdateFunc) (*domain.CartLine, error) {
	e := m.acquire(identity)
	e.mu.Lock()
	defer e.mu.Unlock()

	changed := false
	defer func() { m.release(identity, e, changed) }()

	var current *domain.CartLine
	if l, ok := e.lines[productID]; ok {
		cp := l
		current = &cp
	}
	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		changed = current != nil
		delete(e.lines, productID)
		return nil, nil
	}
	next.Identity = identity
	next.ProductID = productID
	stored := m.put(e, *next)
	changed = true
	return &stored, nil
}

func (m *Memory) put(e *cartEntry, line domain.CartLine) domain.CartLine {
	now := m.now()
	line.Display = nil
	if prev, ok := e.lines[line.ProductID]; ok {
		line.CreatedAt = prev.CreatedAt
	} else if line.CreatedAt.IsZero() {
		line.CreatedAt = now
	}
	line.UpdatedAt = now
	e.lines[line.ProductID] = line
	return line
}

// Len reports how many cart identities are currently held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts.Len()
}
