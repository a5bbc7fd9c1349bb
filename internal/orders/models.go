package orders

import "time"

type Restaurant struct {
	ID                string
	Name              string
	Description       string
	Address           string
	PostalCode        string
	Email             string
	Phone             string
	ShippingCents     int
	AvgServiceMinutes float64
	Status            string
}

type Product struct {
	ID           string
	RestaurantID string
	Name         string
	PriceCents   int
	Available    bool
}

// Customer is the slim user projection joined into order detail responses.
type Customer struct {
	ID        string
	FirstName string
	Email     string
	UserType  string
}

// Order carries the four nullable lifecycle timestamps. Status is never
// stored; it is derived from which timestamps are set (see status.go).
type Order struct {
	ID            string
	UserID        string
	RestaurantID  string
	Address       string
	PriceCents    int
	ShippingCents int
	CreatedAt     time.Time
	StartedAt     *time.Time
	SentAt        *time.Time
	DeliveredAt   *time.Time

	Lines []Line

	// Restaurant is the summary joined into customer-facing reads; nil on
	// restaurant-side listings, where the caller is the restaurant itself.
	Restaurant *Restaurant
}

// Line is one product entry within an order. UnitPriceCents is the product
// price snapshotted when the line was added; it does not track later price
// changes on the product.
type Line struct {
	ProductID      string
	Quantity       int
	UnitPriceCents int
}

// OrderDetail is the joined read model returned by GetByID; the restaurant
// summary rides on the embedded Order.
type OrderDetail struct {
	Order
	Customer Customer
}

type Analytics struct {
	RestaurantID         string
	YesterdayOrders      int
	PendingOrders        int
	DeliveredTodayOrders int
	InvoicedTodayCents   int
}
