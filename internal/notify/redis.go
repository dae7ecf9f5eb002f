package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type redisNotifier struct {
	client  publisher
	channel string
	logger  *zap.Logger
}

// NewRedis publishes events as JSON on Channel.
func NewRedis(client publisher, logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisNotifier{client: client, channel: Channel, logger: logger.Named("notify")}
}

// Dial connects to Redis from a redis:// URL and verifies it with a ping.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (n *redisNotifier) CartUpdated(ctx context.Context, event CartUpdated) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("encode cart-updated event", zap.Error(err))
		return
	}
	// Publishing must not inherit a request context that is about to be cancelled.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := n.client.Publish(pubCtx, n.channel, payload).Err(); err != nil {
		n.logger.Warn("publish cart-updated event",
			zap.String("cart_key", event.CartKey),
			zap.Error(err),
		)
	}
}
