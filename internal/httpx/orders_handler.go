package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/deliverus-app/order-service/internal/apperr"
	kafkax "github.com/deliverus-app/order-service/internal/kafka"
	"github.com/deliverus-app/order-service/internal/orders"
	"github.com/deliverus-app/order-service/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type OrdersHandler struct {
	Repo    *orders.Repo
	Redis   *redis.Client
	Service string

	ProducerCreated   *kafkax.Producer
	ProducerConfirmed *kafkax.Producer
	ProducerSent      *kafkax.Producer
	ProducerDelivered *kafkax.Producer
}

type CreateOrderReq struct {
	UserID       string             `json:"userId"`
	RestaurantID string             `json:"restaurantId"`
	Address      string             `json:"address"`
	Products     []orders.LineInput `json:"products"`
}

type UpdateOrderReq struct {
	Address  string             `json:"address"`
	Products []orders.LineInput `json:"products"`
}

type LineResp struct {
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unitPriceCents"`
}

type OrderResp struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	RestaurantID  string        `json:"restaurantId"`
	Address       string        `json:"address"`
	PriceCents    int           `json:"priceCents"`
	ShippingCents int           `json:"shippingCents"`
	Status        orders.Status `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	StartedAt     *time.Time    `json:"startedAt"`
	SentAt        *time.Time    `json:"sentAt"`
	DeliveredAt   *time.Time    `json:"deliveredAt"`
	Lines         []LineResp    `json:"products"`

	// set on customer-facing reads (order detail, my orders)
	Restaurant *RestaurantResp `json:"restaurant,omitempty"`
}

type RestaurantResp struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Address           string  `json:"address"`
	PostalCode        string  `json:"postalCode"`
	Email             string  `json:"email"`
	Phone             string  `json:"phone"`
	ShippingCents     int     `json:"shippingCents"`
	AvgServiceMinutes float64 `json:"avgServiceMinutes"`
	Status            string  `json:"status"`
}

type CustomerResp struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	Email     string `json:"email"`
	UserType  string `json:"userType"`
}

type OrderDetailResp struct {
	OrderResp
	Customer CustomerResp `json:"user"`
}

type AnalyticsResp struct {
	RestaurantID       string `json:"restaurantId"`
	NumYesterdayOrders int    `json:"numYesterdayOrders"`
	NumPendingOrders   int    `json:"numPendingOrders"`
	NumDeliveredToday  int    `json:"numDeliveredTodayOrders"`
	InvoicedTodayCents int    `json:"invoicedTodayCents"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Put("/orders/{orderId}", h.updateOrder)
	r.Delete("/orders/{orderId}", h.deleteOrder)
	r.Get("/orders/{orderId}", h.getOrder)
	r.Get("/orders/{orderId}/status", h.getOrderStatus)
	r.Patch("/orders/{orderId}/confirm", h.transition(orders.StatusInProcess))
	r.Patch("/orders/{orderId}/send", h.transition(orders.StatusSent))
	r.Patch("/orders/{orderId}/deliver", h.transition(orders.StatusDelivered))
	r.Get("/users/myOrders", h.myOrders)
	r.Get("/restaurants/{restaurantId}/orders", h.restaurantOrders)
	r.Get("/restaurants/{restaurantId}/analytics", h.analytics)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), map[string]string{
		"error": err.Error(),
		"kind":  apperr.Kind(err),
	})
}

func toRestaurantResp(r *orders.Restaurant) *RestaurantResp {
	if r == nil {
		return nil
	}
	return &RestaurantResp{
		ID:                r.ID,
		Name:              r.Name,
		Description:       r.Description,
		Address:           r.Address,
		PostalCode:        r.PostalCode,
		Email:             r.Email,
		Phone:             r.Phone,
		ShippingCents:     r.ShippingCents,
		AvgServiceMinutes: r.AvgServiceMinutes,
		Status:            r.Status,
	}
}

func toOrderResp(o *orders.Order) OrderResp {
	lines := make([]LineResp, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, LineResp{ProductID: l.ProductID, Quantity: l.Quantity, UnitPriceCents: l.UnitPriceCents})
	}
	return OrderResp{
		ID:            o.ID,
		UserID:        o.UserID,
		RestaurantID:  o.RestaurantID,
		Address:       o.Address,
		PriceCents:    o.PriceCents,
		ShippingCents: o.ShippingCents,
		Status:        o.StatusOf(),
		CreatedAt:     o.CreatedAt,
		StartedAt:     o.StartedAt,
		SentAt:        o.SentAt,
		DeliveredAt:   o.DeliveredAt,
		Lines:         lines,
		Restaurant:    toRestaurantResp(o.Restaurant),
	}
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o *orders.Order) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	b, _ := json.Marshal(map[string]any{"status": o.StatusOf()})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) publish(producer *kafkax.Producer, eventType, traceID string, o *orders.Order, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: o.ID,
		Payload:       kafkax.MustMarshal(payload),
	}
	producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.RestaurantID == "" || len(req.Products) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Repo.Create(ctx, req.UserID, req.RestaurantID, req.Address, req.Products)
	if err != nil {
		writeErr(w, err)
		return
	}

	h.cacheStatus(ctx, o)
	h.publish(h.ProducerCreated, orders.EventOrderCreated, r.Header.Get("X-Request-Id"), o, orders.OrderCreatedPayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		RestaurantID:  o.RestaurantID,
		Lines:         orders.ToLinePayloads(o.Lines),
		PriceCents:    o.PriceCents,
		ShippingCents: o.ShippingCents,
	})

	writeJSON(w, http.StatusCreated, toOrderResp(o))
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	var req UpdateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Repo.Update(ctx, orderID, req.Address, req.Products)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Delete(ctx, orderID); err != nil {
		writeErr(w, err)
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err()
	writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

// transition returns the handler for one lifecycle step, keyed by the state
// the order ends up in.
func (h *OrdersHandler) transition(to orders.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var (
			o   *orders.Order
			err error
		)
		var producer *kafkax.Producer
		var eventType string
		switch to {
		case orders.StatusInProcess:
			o, err = h.Repo.Confirm(ctx, orderID)
			producer, eventType = h.ProducerConfirmed, orders.EventOrderConfirmed
		case orders.StatusSent:
			o, err = h.Repo.MarkSent(ctx, orderID)
			producer, eventType = h.ProducerSent, orders.EventOrderSent
		case orders.StatusDelivered:
			o, err = h.Repo.MarkDelivered(ctx, orderID)
			producer, eventType = h.ProducerDelivered, orders.EventOrderDelivered
		}
		if err != nil {
			writeErr(w, err)
			return
		}

		h.cacheStatus(ctx, o)
		h.publish(producer, eventType, r.Header.Get("X-Request-Id"), o, orders.StatusChangedPayload{
			OrderID:      o.ID,
			RestaurantID: o.RestaurantID,
			Status:       o.StatusOf(),
			At:           time.Now().UTC(),
		})
		writeJSON(w, http.StatusOK, toOrderResp(o))
	}
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	d, err := h.Repo.GetByID(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, &d.Order)

	resp := OrderDetailResp{
		OrderResp: toOrderResp(&d.Order),
		Customer: CustomerResp{
			ID:        d.Customer.ID,
			FirstName: d.Customer.FirstName,
			Email:     d.Customer.Email,
			UserType:  d.Customer.UserType,
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

// getOrderStatus serves the derived status, cache first.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s))
		return
	}

	d, err := h.Repo.GetByID(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, &d.Order)
	writeJSON(w, http.StatusOK, map[string]any{"status": d.StatusOf()})
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing userId"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Repo.ListByCustomer(ctx, userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]OrderResp, 0, len(list))
	for i := range list {
		out = append(out, toOrderResp(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) restaurantOrders(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantId")
	q := r.URL.Query()

	var from, to *time.Time
	for _, p := range []struct {
		raw string
		dst **time.Time
	}{{q.Get("from"), &from}, {q.Get("to"), &to}} {
		if p.raw == "" {
			continue
		}
		d, err := time.Parse("2006-01-02", p.raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad date: " + p.raw})
			return
		}
		*p.dst = &d
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Repo.ListByRestaurant(ctx, restaurantID, orders.Status(q.Get("status")), from, to)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]OrderResp, 0, len(list))
	for i := range list {
		out = append(out, toOrderResp(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) analytics(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	a, err := h.Repo.Analytics(ctx, restaurantID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AnalyticsResp{
		RestaurantID:       a.RestaurantID,
		NumYesterdayOrders: a.YesterdayOrders,
		NumPendingOrders:   a.PendingOrders,
		NumDeliveredToday:  a.DeliveredTodayOrders,
		InvoicedTodayCents: a.InvoicedTodayCents,
	})
}
