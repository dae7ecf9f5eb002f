package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Channel is the pub/sub channel cart-updated events are published on.
const Channel = "cart-updated"

const (
	ActionAdded   = "added"
	ActionUpdated = "updated"
	ActionRemoved = "removed"
)

// CartUpdated tells UI layers that a cart changed and badge counts should refresh.
// CartKey is the identity fingerprint, never the raw credential.
type CartUpdated struct {
	CartKey    string    `json:"cartKey"`
	ProductID  string    `json:"productId"`
	Action     string    `json:"action"`
	ItemCount  int       `json:"itemCount"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Notifier delivers cart-updated events. Delivery is best effort.
type Notifier interface {
	CartUpdated(ctx context.Context, event CartUpdated)
}

type logNotifier struct {
	logger *zap.Logger
}

// NewLog returns a Notifier that only records events in the log.
func NewLog(logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logNotifier{logger: logger.Named("notify")}
}

func (n *logNotifier) CartUpdated(_ context.Context, event CartUpdated) {
	n.logger.Info("cart updated",
		zap.String("cart_key", event.CartKey),
		zap.String("product_id", event.ProductID),
		zap.String("action", event.Action),
		zap.Int("item_count", event.ItemCount),
	)
}

// Nop discards events.
type Nop struct{}

func (Nop) CartUpdated(context.Context, CartUpdated) {}
