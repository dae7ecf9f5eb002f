package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/metrics"
	"storefront-cart/internal/notify"
	cartrepo "storefront-cart/internal/repository/cart"
	"storefront-cart/internal/service/identity"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultMutationTimeout = 10 * time.Second

const (
	opAdd         = "add"
	opSetQuantity = "set_quantity"
	opRemove      = "remove"
)

// Service applies the cart rules: additive merge on add, absolute replace on
// set-quantity, stock ceilings, and price snapshots taken at add time.
type Service struct {
	store    cartrepo.Store
	catalog  catalog
	notifier notify.Notifier
	metrics  *metrics.Cart
	logger   *zap.Logger
	tracer   trace.Tracer
	timeout  time.Duration
	now      func() time.Time
}

type catalog interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Option func(*Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithMetrics(m *metrics.Cart) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("cart_service")
		}
	}
}

func WithMutationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New builds the service over the store chosen at startup.
func New(store cartrepo.Store, catalog catalog, opts ...Option) *Service {
	s := &Service{
		store:    store,
		catalog:  catalog,
		notifier: notify.Nop{},
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("storefront-cart/cart"),
		timeout:  defaultMutationTimeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View is a cart with display data composed in and totals computed.
type View struct {
	Lines  []domain.CartLine
	Totals domain.Totals
}

// Result describes the state after a successful mutation. Line is nil when
// the mutation removed the line.
type Result struct {
	Line   *domain.CartLine
	Totals domain.Totals
}

// AddItem merges delta into the line for productID, refreshing its price snapshot.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, delta int) (res *Result, err error) {
	ctx, cancel := s.detach(ctx)
	defer cancel()
	ctx, span := s.startSpan(ctx, opAdd, productID)
	start := time.Now()
	defer func() { s.finish(span, opAdd, cartID, start, err) }()

	if delta < 1 || delta > domain.MaxLineQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", domain.ErrInvalidQuantity, domain.MaxLineQuantity)
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.ErrProductNotFound
	}

	// Catalog reads stay outside Update, which holds the cart lock and, when
	// durable, a pool connection.
	product, err := s.lookup(ctx, productID)
	if err != nil {
		return nil, err
	}
	stock := product.StockInfo()

	line, err := s.store.Update(ctx, cartID, productID, func(current *domain.CartLine) (*domain.CartLine, error) {
		target := delta
		next := domain.CartLine{}
		if current != nil {
			target += current.Quantity
			next.CreatedAt = current.CreatedAt
		}
		if target > domain.MaxLineQuantity {
			return nil, fmt.Errorf("%w: line would hold %d, maximum is %d", domain.ErrInvalidQuantity, target, domain.MaxLineQuantity)
		}
		if !stock.Allows(target) {
			return nil, &domain.StockError{ProductID: productID, Requested: target, Available: stock.StockQuantity}
		}
		next.Quantity = target
		next.UnitPrice = stock.UnitPrice
		return &next, nil
	})
	if err != nil {
		return nil, err
	}
	line.Display = displayFor(product)
	return s.afterMutation(ctx, cartID, productID, notify.ActionAdded, line), nil
}

// SetQuantity replaces the quantity of an existing line; zero removes it.
// The stored price snapshot is kept; only AddItem refreshes it.
func (s *Service) SetQuantity(ctx context.Context, cartID, productID string, quantity int) (res *Result, err error) {
	ctx, cancel := s.detach(ctx)
	defer cancel()
	ctx, span := s.startSpan(ctx, opSetQuantity, productID)
	start := time.Now()
	defer func() { s.finish(span, opSetQuantity, cartID, start, err) }()

	if quantity < 0 || quantity > domain.MaxLineQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 0 and %d", domain.ErrInvalidQuantity, domain.MaxLineQuantity)
	}

	var product *domain.Product
	if quantity > 0 {
		if product, err = s.lookup(ctx, productID); err != nil {
			return nil, err
		}
	}

	line, err := s.store.Update(ctx, cartID, productID, func(current *domain.CartLine) (*domain.CartLine, error) {
		if current == nil {
			return nil, domain.ErrLineNotFound
		}
		if quantity == 0 {
			return nil, nil
		}
		if stock := product.StockInfo(); !stock.Allows(quantity) {
			return nil, &domain.StockError{ProductID: productID, Requested: quantity, Available: stock.StockQuantity}
		}
		next := *current
		next.Quantity = quantity
		return &next, nil
	})
	if err != nil {
		return nil, err
	}

	action := notify.ActionUpdated
	if line == nil {
		action = notify.ActionRemoved
	} else {
		line.Display = displayFor(product)
	}
	return s.afterMutation(ctx, cartID, productID, action, line), nil
}

// RemoveItem deletes the line for productID.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (res *Result, err error) {
	ctx, cancel := s.detach(ctx)
	defer cancel()
	ctx, span := s.startSpan(ctx, opRemove, productID)
	start := time.Now()
	defer func() { s.finish(span, opRemove, cartID, start, err) }()

	_, err = s.store.Update(ctx, cartID, productID, func(current *domain.CartLine) (*domain.CartLine, error) {
		if current == nil {
			return nil, domain.ErrLineNotFound
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s.afterMutation(ctx, cartID, productID, notify.ActionRemoved, nil), nil
}

// GetCart returns the stored lines with live catalog display data and totals
// computed from the price snapshots.
func (s *Service) GetCart(ctx context.Context, cartID string) (*View, error) {
	lines, err := s.store.Lines(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart lines: %w", err)
	}
	for i := range lines {
		if lines[i].Display != nil {
			continue
		}
		p, err := s.catalog.GetByID(ctx, lines[i].ProductID)
		switch {
		case err == nil:
			lines[i].Display = displayFor(p)
		case errors.Is(err, domain.ErrNotFound):
			lines[i].Display = &domain.LineDisplay{}
		default:
			return nil, fmt.Errorf("load product %s: %w", lines[i].ProductID, err)
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].CreatedAt.Equal(lines[j].CreatedAt) {
			return lines[i].ProductID < lines[j].ProductID
		}
		return lines[i].CreatedAt.Before(lines[j].CreatedAt)
	})
	return &View{Lines: lines, Totals: Summarize(lines)}, nil
}

func (s *Service) lookup(ctx context.Context, productID string) (*domain.Product, error) {
	p, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("lookup product %s: %w", productID, err)
	}
	if !p.IsActive {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

// afterMutation computes totals for the response and emits cart-updated.
// The mutation is already committed, so read failures are only logged.
func (s *Service) afterMutation(ctx context.Context, cartID, productID, action string, line *domain.CartLine) *Result {
	res := &Result{Line: line}
	lines, err := s.store.Lines(ctx, cartID)
	if err != nil {
		s.logger.Warn("reload cart after mutation", zap.String("cart_key", identity.Fingerprint(cartID)), zap.Error(err))
	} else {
		res.Totals = Summarize(lines)
	}
	s.notifier.CartUpdated(ctx, notify.CartUpdated{
		CartKey:    identity.Fingerprint(cartID),
		ProductID:  productID,
		Action:     action,
		ItemCount:  res.Totals.ItemCount,
		OccurredAt: s.now(),
	})
	return res
}

// detach keeps a started mutation running if the caller goes away, bounded by
// the mutation timeout instead.
func (s *Service) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}

func (s *Service) startSpan(ctx context.Context, op, productID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "cart."+op, trace.WithAttributes(
		attribute.String("cart.op", op),
		attribute.String("cart.product_id", productID),
	))
}

func (s *Service) finish(span trace.Span, op, cartID string, start time.Time, err error) {
	defer span.End()
	result := ResultLabel(err)
	s.metrics.Observe(op, result, time.Since(start))
	if err == nil {
		return
	}
	span.SetAttributes(attribute.String("cart.result", result))
	if result == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("cart mutation failed",
			zap.String("op", op),
			zap.String("cart_key", identity.Fingerprint(cartID)),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("cart mutation rejected",
		zap.String("op", op),
		zap.String("cart_key", identity.Fingerprint(cartID)),
		zap.String("result", result),
	)
}

// ResultLabel maps a mutation error to a low-cardinality label.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrLineNotFound):
		return "line_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "error"
	}
}

func displayFor(p *domain.Product) *domain.LineDisplay {
	if p == nil {
		return nil
	}
	return &domain.LineDisplay{
		Name:          p.Name,
		ImageURL:      p.ImageURL,
		StockQuantity: p.StockQuantity,
		TrackQuantity: p.TrackQuantity,
		Available:     p.IsActive,
	}
}
