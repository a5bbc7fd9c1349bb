package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderConfirmed = "OrderConfirmed"
	EventOrderSent      = "OrderSent"
	EventOrderDelivered = "OrderDelivered"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type LinePayload struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

type OrderCreatedPayload struct {
	OrderID       string        `json:"order_id"`
	UserID        string        `json:"user_id"`
	RestaurantID  string        `json:"restaurant_id"`
	Lines         []LinePayload `json:"lines"`
	PriceCents    int           `json:"price_cents"`
	ShippingCents int           `json:"shipping_cents"`
}

// StatusChangedPayload rides OrderConfirmed/OrderSent/OrderDelivered events.
type StatusChangedPayload struct {
	OrderID      string    `json:"order_id"`
	RestaurantID string    `json:"restaurant_id"`
	Status       Status    `json:"status"`
	At           time.Time `json:"at"`
}

func ToLinePayloads(lines []Line) []LinePayload {
	out := make([]LinePayload, 0, len(lines))
	for _, l := range lines {
		out = append(out, LinePayload{ProductID: l.ProductID, Quantity: l.Quantity, UnitPriceCents: l.UnitPriceCents})
	}
	return out
}
