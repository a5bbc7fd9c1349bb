package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deliverus-app/order-service/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LineInput is a requested product line as it arrives from the client.
type LineInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type Repo struct{ DB *pgxpool.Pool }

func wrapTx(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, apperr.ErrTransaction)
}

const orderCols = `id, user_id, restaurant_id, address, price_cents, shipping_cents,
	created_at, started_at, sent_at, delivered_at`

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(&o.ID, &o.UserID, &o.RestaurantID, &o.Address,
		&o.PriceCents, &o.ShippingCents,
		&o.CreatedAt, &o.StartedAt, &o.SentAt, &o.DeliveredAt)
}

// querier lets the same helpers run against the pool or an open transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// resolveLines snapshots current product prices for the requested lines and
// enforces the line invariants: non-empty list, positive quantity, product
// exists, is available and belongs to the order's restaurant. Prices are read
// here, before any write of the enclosing transaction.
func resolveLines(ctx context.Context, q querier, restaurantID string, inputs []LineInput) ([]Line, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("empty line list: %w", apperr.ErrValidation)
	}

	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity < 1 {
			return nil, fmt.Errorf("product %s: quantity %d: %w", in.ProductID, in.Quantity, apperr.ErrValidation)
		}
		ids = append(ids, in.ProductID)
	}

	rows, err := q.Query(ctx, `SELECT id, restaurant_id, price_cents, availability
		FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type priced struct {
		restaurantID string
		priceCents   int
		available    bool
	}
	prices := map[string]priced{}
	for rows.Next() {
		var id string
		var p priced
		if err := rows.Scan(&id, &p.restaurantID, &p.priceCents, &p.available); err != nil {
			return nil, err
		}
		prices[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines := make([]Line, 0, len(inputs))
	for _, in := range inputs {
		p, ok := prices[in.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", in.ProductID, apperr.ErrNotFound)
		}
		if !p.available {
			return nil, fmt.Errorf("product %s unavailable: %w", in.ProductID, apperr.ErrValidation)
		}
		if p.restaurantID != restaurantID {
			return nil, fmt.Errorf("product %s belongs to another restaurant: %w", in.ProductID, apperr.ErrValidation)
		}
		lines = append(lines, Line{ProductID: in.ProductID, Quantity: in.Quantity, UnitPriceCents: p.priceCents})
	}
	return lines, nil
}

func restaurantShipping(ctx context.Context, q querier, restaurantID string) (int, error) {
	var fee int
	err := q.QueryRow(ctx, `SELECT shipping_cents FROM restaurants WHERE id=$1`, restaurantID).Scan(&fee)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("restaurant %s: %w", restaurantID, apperr.ErrNotFound)
	}
	return fee, err
}

func insertLines(ctx context.Context, tx pgx.Tx, orderID string, lines []Line) error {
	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines(order_id, product_id, quantity, unit_price_cents)
			VALUES ($1,$2,$3,$4)`,
			orderID, l.ProductID, l.Quantity, l.UnitPriceCents,
		); err != nil {
			return wrapTx("insert order line", err)
		}
	}
	return nil
}

// Create persists a new order and its line set in one transaction. Prices are
// snapshotted from the products table, shipping from the restaurant's policy.
// On any failure nothing is persisted.
func (r *Repo) Create(ctx context.Context, userID, restaurantID, address string, inputs []LineInput) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, wrapTx("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fee, err := restaurantShipping(ctx, tx, restaurantID)
	if err != nil {
		return nil, err
	}
	lines, err := resolveLines(ctx, tx, restaurantID, inputs)
	if err != nil {
		return nil, err
	}

	sub := Subtotal(lines)
	shipping := ShippingFor(sub, fee)

	o := &Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		RestaurantID:  restaurantID,
		Address:       address,
		PriceCents:    sub + shipping,
		ShippingCents: shipping,
		Lines:         lines,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, restaurant_id, address, price_cents, shipping_cents)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		o.ID, o.UserID, o.RestaurantID, o.Address, o.PriceCents, o.ShippingCents,
	).Scan(&o.CreatedAt)
	if err != nil {
		return nil, wrapTx("insert order", err)
	}

	if err := insertLines(ctx, tx, o.ID, lines); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrapTx("commit", err)
	}
	return o, nil
}

// Update replaces the order's line set, address and price in one transaction.
// Only pending orders may be edited; the restaurant is fixed at create time,
// so repricing is anchored to the stored restaurant_id. If anything fails the
// previous line set stays in place.
func (r *Repo) Update(ctx context.Context, orderID, address string, inputs []LineInput) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, wrapTx("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := &Order{}
	err = scanOrder(tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, orderID), o)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !o.IsPending() {
		return nil, fmt.Errorf("order %s is %s: %w", orderID, o.StatusOf(), apperr.ErrStateConflict)
	}

	fee, err := restaurantShipping(ctx, tx, o.RestaurantID)
	if err != nil {
		return nil, err
	}
	lines, err := resolveLines(ctx, tx, o.RestaurantID, inputs)
	if err != nil {
		return nil, err
	}

	sub := Subtotal(lines)
	o.ShippingCents = ShippingFor(sub, fee)
	o.PriceCents = sub + o.ShippingCents
	o.Address = address
	o.Lines = lines

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET price_cents=$2, shipping_cents=$3, address=$4 WHERE id=$1`,
		o.ID, o.PriceCents, o.ShippingCents, o.Address,
	); err != nil {
		return nil, wrapTx("update order", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id=$1`, o.ID); err != nil {
		return nil, wrapTx("delete old lines", err)
	}
	if err := insertLines(ctx, tx, o.ID, lines); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrapTx("commit", err)
	}
	return o, nil
}

// Delete removes a pending order; order_lines go with it via ON DELETE CASCADE.
func (r *Repo) Delete(ctx context.Context, orderID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapTx("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var startedAt *time.Time
	err = tx.QueryRow(ctx, `SELECT started_at FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&startedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if startedAt != nil {
		return fmt.Errorf("order %s already confirmed: %w", orderID, apperr.ErrStateConflict)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID); err != nil {
		return wrapTx("delete order", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapTx("commit", err)
	}
	return nil
}

// Confirm moves a pending order to in process by stamping started_at.
func (r *Repo) Confirm(ctx context.Context, orderID string) (*Order, error) {
	return r.transition(ctx, orderID, "started_at", StatusPending)
}

// MarkSent moves an in-process order to sent by stamping sent_at.
func (r *Repo) MarkSent(ctx context.Context, orderID string) (*Order, error) {
	return r.transition(ctx, orderID, "sent_at", StatusInProcess)
}

// MarkDelivered stamps delivered_at and, in the same transaction, recomputes
// the restaurant's average confirm-to-delivery minutes over its delivered
// orders. If the metric update fails the whole transition rolls back.
func (r *Repo) MarkDelivered(ctx context.Context, orderID string) (*Order, error) {
	return r.transition(ctx, orderID, "delivered_at", StatusSent)
}

// transition stamps exactly the next lifecycle timestamp. The order row is
// locked and the call is rejected unless the order sits in the expected
// predecessor state, so repeats and skips surface as state conflicts instead
// of clobbering earlier timestamps.
func (r *Repo) transition(ctx context.Context, orderID, column string, want Status) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, wrapTx("begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := &Order{}
	err = scanOrder(tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, orderID), o)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if got := o.StatusOf(); got != want {
		return nil, fmt.Errorf("order %s is %s, want %s: %w", orderID, got, want, apperr.ErrStateConflict)
	}

	// transition responses carry the same shape as create/update/get
	lines, err := loadLines(ctx, tx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]

	var stamped time.Time
	err = tx.QueryRow(ctx, `UPDATE orders SET `+column+`=now() WHERE id=$1 RETURNING `+column, orderID).Scan(&stamped)
	if err != nil {
		return nil, wrapTx("stamp "+column, err)
	}
	switch column {
	case "started_at":
		o.StartedAt = &stamped
	case "sent_at":
		o.SentAt = &stamped
	case "delivered_at":
		o.DeliveredAt = &stamped
		if err := recomputeServiceTime(ctx, tx, o.RestaurantID); err != nil {
			return nil, wrapTx("recompute service time", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrapTx("commit", err)
	}
	return o, nil
}

func recomputeServiceTime(ctx context.Context, tx pgx.Tx, restaurantID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE restaurants SET avg_service_minutes = (
			SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (delivered_at - started_at)) / 60), 0)
			FROM orders
			WHERE restaurant_id = $1 AND delivered_at IS NOT NULL
		)
		WHERE id = $1`, restaurantID)
	return err
}

func loadLines(ctx context.Context, q querier, orderIDs []string) (map[string][]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT order_id, product_id, quantity, unit_price_cents
		FROM order_lines WHERE order_id = ANY($1)`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byOrder := map[string][]Line{}
	for rows.Next() {
		var orderID string
		var l Line
		if err := rows.Scan(&orderID, &l.ProductID, &l.Quantity, &l.UnitPriceCents); err != nil {
			return nil, err
		}
		byOrder[orderID] = append(byOrder[orderID], l)
	}
	return byOrder, rows.Err()
}

const restaurantCols = `id, name, description, address, postal_code, email, phone,
	shipping_cents, avg_service_minutes, status`

func scanRestaurant(row pgx.Row, rest *Restaurant) error {
	return row.Scan(&rest.ID, &rest.Name, &rest.Description, &rest.Address,
		&rest.PostalCode, &rest.Email, &rest.Phone,
		&rest.ShippingCents, &rest.AvgServiceMinutes, &rest.Status)
}

func loadRestaurants(ctx context.Context, q querier, ids []string) (map[string]*Restaurant, error) {
	rows, err := q.Query(ctx, `SELECT `+restaurantCols+` FROM restaurants WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := map[string]*Restaurant{}
	for rows.Next() {
		rest := &Restaurant{}
		if err := scanRestaurant(rows, rest); err != nil {
			return nil, err
		}
		byID[rest.ID] = rest
	}
	return byID, rows.Err()
}

// GetByID returns the order joined with its lines, a restaurant summary and
// a customer summary.
func (r *Repo) GetByID(ctx context.Context, orderID string) (*OrderDetail, error) {
	d := &OrderDetail{}
	err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID), &d.Order)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	lines, err := loadLines(ctx, r.DB, []string{d.ID})
	if err != nil {
		return nil, err
	}
	d.Lines = lines[d.ID]

	rest := &Restaurant{}
	if err := scanRestaurant(r.DB.QueryRow(ctx, `SELECT `+restaurantCols+` FROM restaurants WHERE id=$1`, d.RestaurantID), rest); err != nil {
		return nil, err
	}
	d.Order.Restaurant = rest

	err = r.DB.QueryRow(ctx, `SELECT id, first_name, email, user_type FROM users WHERE id=$1`, d.UserID).
		Scan(&d.Customer.ID, &d.Customer.FirstName, &d.Customer.Email, &d.Customer.UserType)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListByRestaurant returns a restaurant's orders, optionally narrowed by a
// status filter and a creation date range. A zero filter means all statuses;
// `to` is inclusive through end-of-day.
func (r *Repo) ListByRestaurant(ctx context.Context, restaurantID string, filter Status, from, to *time.Time) ([]Order, error) {
	query := `SELECT ` + orderCols + ` FROM orders WHERE restaurant_id=$1`
	args := []any{restaurantID}
	if w := statusWhere(filter); w != "" {
		query += ` AND ` + w
	}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if to != nil {
		args = append(args, to.AddDate(0, 0, 1))
		query += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}

	return r.queryOrders(ctx, query, args...)
}

// ListByCustomer returns the customer's orders with lines and a restaurant
// summary per order, newest first.
func (r *Repo) ListByCustomer(ctx context.Context, userID string) ([]Order, error) {
	out, err := r.queryOrders(ctx,
		`SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil || len(out) == 0 {
		return out, err
	}

	ids := make([]string, 0, len(out))
	for _, o := range out {
		ids = append(ids, o.RestaurantID)
	}
	restaurants, err := loadRestaurants(ctx, r.DB, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Restaurant = restaurants[out[i].RestaurantID]
	}
	return out, nil
}

func (r *Repo) queryOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	lines, err := loadLines(ctx, r.DB, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
	}
	return out, nil
}

// Analytics aggregates the restaurant dashboard counters. Day boundaries are
// midnight UTC.
func (r *Repo) Analytics(ctx context.Context, restaurantID string) (*Analytics, error) {
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM restaurants WHERE id=$1)`, restaurantID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("restaurant %s: %w", restaurantID, apperr.ErrNotFound)
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	a := &Analytics{RestaurantID: restaurantID}
	err := r.DB.QueryRow(ctx, `
		SELECT count(*) FROM orders
		WHERE restaurant_id=$1 AND created_at >= $2 AND created_at < $3`,
		restaurantID, yesterday, today).Scan(&a.YesterdayOrders)
	if err != nil {
		return nil, err
	}
	err = r.DB.QueryRow(ctx, `
		SELECT count(*) FROM orders
		WHERE restaurant_id=$1 AND started_at IS NULL`, restaurantID).Scan(&a.PendingOrders)
	if err != nil {
		return nil, err
	}
	err = r.DB.QueryRow(ctx, `
		SELECT count(*) FROM orders
		WHERE restaurant_id=$1 AND delivered_at >= $2`, restaurantID, today).Scan(&a.DeliveredTodayOrders)
	if err != nil {
		return nil, err
	}
	err = r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(price_cents), 0) FROM orders
		WHERE restaurant_id=$1 AND created_at >= $2`, restaurantID, today).Scan(&a.InvoicedTodayCents)
	if err != nil {
		return nil, err
	}
	return a, nil
}
