package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type stubPublisher struct {
	channel string
	message any
	err     error
}

func (s *stubPublisher) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	s.channel = channel
	s.message = message
	return redis.NewIntResult(1, s.err)
}

func TestRedisNotifierPublishesJSON(t *testing.T) {
	pub := &stubPublisher{}
	n := NewRedis(pub, nil)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	n.CartUpdated(context.Background(), CartUpdated{CartKey: "tok", ProductID: "p1", Action: ActionAdded, ItemCount: 3, OccurredAt: at})

	if pub.channel != Channel {
		t.Fatalf("unexpected channel %q", pub.channel)
	}
	raw, ok := pub.message.([]byte)
	if !ok {
		t.Fatalf("expected []byte payload, got %T", pub.message)
	}
	var got CartUpdated
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.CartKey != "tok" || got.ItemCount != 3 || got.Action != ActionAdded || !got.OccurredAt.Equal(at) {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestRedisNotifierSwallowsPublishErrors(t *testing.T) {
	pub := &stubPublisher{err: errors.New("connection refused")}
	n := NewRedis(pub, nil)
	n.CartUpdated(context.Background(), CartUpdated{CartKey: "tok"})
	if pub.channel != Channel {
		t.Fatalf("expected publish attempt")
	}
}
