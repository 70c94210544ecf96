package order

import "github.com/go-faster/errors"

// Status is the fulfilment state of an order. Transitions move strictly
// forward: pending -> processing -> shipped -> delivered.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
)

// ErrBackwardTransition is returned when a status update would move an order
// backwards or sideways in its lifecycle.
var ErrBackwardTransition = errors.New("order status cannot move backwards")

// rank orders the known statuses; unknown statuses rank below all of them.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusProcessing:
		return 2
	case StatusShipped:
		return 3
	case StatusDelivered:
		return 4
	default:
		return 0
	}
}

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool { return s.rank() > 0 }

// CanTransition reports whether the order may move from s to next.
// Skipping ahead (e.g. pending -> shipped) is allowed; moving backwards or
// repeating the current status is not.
func (s Status) CanTransition(next Status) bool {
	return next.Known() && next.rank() > s.rank()
}
