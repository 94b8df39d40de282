package api

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type EventBroker interface {
	Subscribe(tenantID string) chan RunEvent
	Unsubscribe(tenantID string, ch chan RunEvent)
	Publish(tenantID string, evt RunEvent)
}

// In-memory broker already implemented in broker.go and satisfies EventBroker

// RedisBroker implements EventBroker over Redis Pub/Sub
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBroker{rdb: redis.NewClient(opt)}, nil
}

func (b *RedisBroker) Subscribe(tenantID string) chan RunEvent {
	ch := make(chan RunEvent, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(tenantID))
	// initial consume to ensure subscription
	_, _ = ps.Receive(ctx)
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt RunEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
				select {
				case ch <- evt:
				default:
				}
			}
		}
	}()
	return ch
}

func (b *RedisBroker) Unsubscribe(tenantID string, ch chan RunEvent) {
	// the reader goroutine exits when ps.Channel closes on connection loss
	close(ch)
}

func (b *RedisBroker) Publish(tenantID string, evt RunEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, _ := json.Marshal(evt)
	_ = b.rdb.Publish(ctx, b.chanName(tenantID), data).Err()
}

func (b *RedisBroker) chanName(tenantID string) string { return "runs:" + tenantID }
