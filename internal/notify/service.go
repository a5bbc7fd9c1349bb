// Package notify keeps the redis order-status cache in sync with the
// lifecycle events published by the API, so status polls can be answered
// without touching Postgres.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	kafkax "github.com/deliverus-app/order-service/internal/kafka"
	"github.com/deliverus-app/order-service/internal/orders"
	"github.com/deliverus-app/order-service/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandleLifecycleEvent is installed as the consumer handler for all four
// order topics. Events are deduped by event_id; a replay refreshes the cache
// again, which is harmless.
func (s *Service) HandleLifecycleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	var orderID string
	var status orders.Status
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		orderID, status = p.OrderID, orders.StatusPending
	case orders.EventOrderConfirmed, orders.EventOrderSent, orders.EventOrderDelivered:
		p, err := kafkax.UnwrapPayload[orders.StatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		orderID, status = p.OrderID, p.Status
	default:
		return nil // ignore
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	b, _ := json.Marshal(map[string]any{"status": status})
	return s.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}
