package orders

// FreeShippingThresholdCents: orders whose product subtotal reaches 10.00
// are shipped for free. Fixed business rule, the boundary is inclusive.
const FreeShippingThresholdCents = 1000

// Subtotal sums unit price times quantity over the snapshot prices already
// resolved for the lines.
func Subtotal(lines []Line) int {
	total := 0
	for _, l := range lines {
		total += l.UnitPriceCents * l.Quantity
	}
	return total
}

// ShippingFor picks the shipping fee for a given subtotal: zero at or above
// the free-shipping threshold, otherwise the restaurant's flat fee.
func ShippingFor(subtotalCents, restaurantShippingCents int) int {
	if subtotalCents >= FreeShippingThresholdCents {
		return 0
	}
	return restaurantShippingCents
}

// Total is the amount snapshotted onto the order row. It is computed once at
// create/update time and not recomputed when product prices or the
// restaurant's shipping fee change afterwards.
func Total(lines []Line, restaurantShippingCents int) int {
	sub := Subtotal(lines)
	return sub + ShippingFor(sub, restaurantShippingCents)
}
