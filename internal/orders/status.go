package orders

// Status is derived from the order's lifecycle timestamps, never stored.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInProcess Status = "in process"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
)

// StatusOf maps timestamp presence to the current lifecycle state.
// pending -> in process -> sent -> delivered, one-way.
func (o *Order) StatusOf() Status {
	switch {
	case o.DeliveredAt != nil:
		return StatusDelivered
	case o.SentAt != nil:
		return StatusSent
	case o.StartedAt != nil:
		return StatusInProcess
	default:
		return StatusPending
	}
}

func (o *Order) IsPending() bool { return o.StartedAt == nil }

// MatchesFilter applies the listing predicates. Note the asymmetry: the
// delivered filter tests only sentAt, so an order that is sent but not yet
// delivered matches both the sent and the delivered filter. That overlap is
// long-standing query behaviour that clients depend on; keep it.
func (o *Order) MatchesFilter(f Status) bool {
	switch f {
	case StatusPending:
		return o.StartedAt == nil
	case StatusInProcess:
		return o.StartedAt != nil && o.SentAt == nil && o.DeliveredAt == nil
	case StatusSent:
		return o.SentAt != nil && o.DeliveredAt == nil
	case StatusDelivered:
		return o.SentAt != nil
	default:
		return false
	}
}

// statusWhere returns the SQL fragment for a status filter, mirroring
// MatchesFilter exactly. Empty filter means no constraint.
func statusWhere(f Status) string {
	switch f {
	case StatusPending:
		return "started_at IS NULL"
	case StatusInProcess:
		return "started_at IS NOT NULL AND sent_at IS NULL AND delivered_at IS NULL"
	case StatusSent:
		return "sent_at IS NOT NULL AND delivered_at IS NULL"
	case StatusDelivered:
		return "sent_at IS NOT NULL"
	default:
		return ""
	}
}
