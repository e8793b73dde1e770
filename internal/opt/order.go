package opt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is an immutable picking job: it must be picked for PickingTime and
// be done by CompleteBy. Value travels with the order but never affects
// scheduling.
type Order struct {
	ID          string
	Value       decimal.Decimal
	PickingTime time.Duration
	CompleteBy  Clock
}

func NewOrder(id string, value decimal.Decimal, pickingTime time.Duration, completeBy Clock) Order {
	return Order{
		ID:          id,
		Value:       value,
		PickingTime: pickingTime,
		CompleteBy:  completeBy,
	}
}

// LatestStartTime is the last moment picking can begin and still meet
// CompleteBy. It is not clamped to the working window.
func (o Order) LatestStartTime() Clock {
	return o.CompleteBy.Sub(o.PickingTime)
}

// Window is the working day shared by every picker.
type Window struct {
	Start Clock
	End   Clock
}

// Length is End - Start.
func (w Window) Length() time.Duration { return time.Duration(w.End - w.Start) }

// WorkerPool lists pickers in preference order; earlier pickers win ties
// when more than one can take an order.
type WorkerPool struct {
	Workers []string
	Window  Window
}
