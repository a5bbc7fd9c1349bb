package orders

import "testing"

func TestShippingFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		subtotal int
		fee      int
		want     int
	}{
		{name: "below_threshold_charges_fee", subtotal: 800, fee: 250, want: 250},
		{name: "above_threshold_free", subtotal: 1200, fee: 250, want: 0},
		{name: "exactly_threshold_free", subtotal: 1000, fee: 250, want: 0},
		{name: "one_cent_below", subtotal: 999, fee: 250, want: 250},
		{name: "free_regardless_of_fee", subtotal: 5000, fee: 9900, want: 0},
		{name: "zero_subtotal", subtotal: 0, fee: 300, want: 300},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ShippingFor(tt.subtotal, tt.fee); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSubtotal(t *testing.T) {
	t.Parallel()

	lines := []Line{
		{ProductID: "a", Quantity: 2, UnitPriceCents: 400},
		{ProductID: "b", Quantity: 1, UnitPriceCents: 150},
	}
	if got := Subtotal(lines); got != 950 {
		t.Fatalf("expected 950, got %d", got)
	}
	if got := Subtotal(nil); got != 0 {
		t.Fatalf("expected 0 for empty lines, got %d", got)
	}
}

// The two canonical pricing scenarios: 2x4.00 at a 2.50 fee totals 10.50,
// 3x4.00 crosses the free-shipping threshold and totals 12.00.
func TestTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		lines []Line
		fee   int
		want  int
	}{
		{
			name:  "under_threshold_adds_shipping",
			lines: []Line{{ProductID: "a", Quantity: 2, UnitPriceCents: 400}},
			fee:   250,
			want:  1050,
		},
		{
			name:  "over_threshold_ships_free",
			lines: []Line{{ProductID: "a", Quantity: 3, UnitPriceCents: 400}},
			fee:   250,
			want:  1200,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Total(tt.lines, tt.fee); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
			// deterministic for fixed inputs
			if again := Total(tt.lines, tt.fee); again != tt.want {
				t.Fatalf("second call: expected %d, got %d", tt.want, again)
			}
		})
	}
}
