package opt

import (
	"sort"
)

// Queue is one picker's committed orders in the order they were committed.
type Queue struct {
	WorkerID string
	Orders   []Order
}

// Assignment holds a queue for every picker, in pool order. Idle pickers
// have an empty queue rather than a missing one.
type Assignment struct {
	Queues []Queue
}

// NewAssignment returns an assignment with an empty queue per picker.
func NewAssignment(pool WorkerPool) *Assignment {
	a := &Assignment{Queues: make([]Queue, len(pool.Workers))}
	for i, w := range pool.Workers {
		a.Queues[i] = Queue{WorkerID: w, Orders: []Order{}}
	}
	return a
}

// Queue returns the orders committed to worker, or nil for an unknown id.
func (a *Assignment) Queue(worker string) []Order {
	if q := a.find(worker); q != nil {
		return q.Orders
	}
	return nil
}

// OrderIDs lists the ids committed to worker in commitment order.
func (a *Assignment) OrderIDs(worker string) []string {
	orders := a.Queue(worker)
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}

// Len is the number of committed orders across all pickers.
func (a *Assignment) Len() int {
	n := 0
	for _, q := range a.Queues {
		n += len(q.Orders)
	}
	return n
}

func (a *Assignment) find(worker string) *Queue {
	for i := range a.Queues {
		if a.Queues[i].WorkerID == worker {
			return &a.Queues[i]
		}
	}
	return nil
}

func (a *Assignment) append(worker string, o Order) {
	if q := a.find(worker); q != nil {
		q.Orders = append(q.Orders, o)
	}
}

// SortByUrgency returns a copy of orders sorted by latest start time, then
// by deadline. The sort is stable, so sorting sorted input changes nothing.
func SortByUrgency(orders []Order) []Order {
	out := append([]Order(nil), orders...)
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := out[i].LatestStartTime(), out[j].LatestStartTime()
		if li != lj {
			return li < lj
		}
		return out[i].CompleteBy < out[j].CompleteBy
	})
	return out
}

// Outcome says what happened to an order during a run.
type Outcome string

const (
	// Placed: a picker had room.
	Placed Outcome = "placed"
	// Displaced: placed after evicting a committed order.
	Displaced Outcome = "displaced"
	// Unplaceable: no room and nothing to evict.
	Unplaceable Outcome = "unplaceable"
)

// Decision records how one order was handled, in processing order.
type Decision struct {
	OrderID  string
	Outcome  Outcome
	WorkerID string
	Evicted  string
}

// Result is the outcome of a scheduling run. Unscheduled lists every input
// order absent from the final queues, evicted ones included, in the order
// they dropped out. Evicted is the subset removed by a deputy search.
type Result struct {
	Assignment  *Assignment
	Unscheduled []string
	Evicted     []string
	Decisions   []Decision
}

// FindWorker returns the picker that should take candidate: the first in
// pool order with room, else a deputy. A deputy search may evict an order
// from a; the evicted order is returned so the caller can report it.
func FindWorker(a *Assignment, candidate Order, w Window) (worker string, evicted *Order, ok bool) {
	for _, q := range a.Queues {
		if CanAppend(q.Orders, candidate, w) {
			return q.WorkerID, nil, true
		}
	}
	return FindDeputy(a, candidate, w)
}

// Schedule assigns orders to the pool's pickers. Input is validated as a
// batch first; on error nothing is scheduled. Orders are then taken in
// urgency order and each is placed, placed by eviction, or left out.
func Schedule(orders []Order, pool WorkerPool) (Result, error) {
	if err := Validate(orders, pool); err != nil {
		return Result{}, err
	}

	res := Result{
		Assignment:  NewAssignment(pool),
		Unscheduled: []string{},
		Evicted:     []string{},
		Decisions:   make([]Decision, 0, len(orders)),
	}
	for _, o := range SortByUrgency(orders) {
		worker, evicted, ok := FindWorker(res.Assignment, o, pool.Window)
		d := Decision{OrderID: o.ID, WorkerID: worker}
		switch {
		case !ok:
			d.Outcome = Unplaceable
			res.Unscheduled = append(res.Unscheduled, o.ID)
		case evicted != nil:
			d.Outcome = Displaced
			d.Evicted = evicted.ID
			res.Evicted = append(res.Evicted, evicted.ID)
			res.Unscheduled = append(res.Unscheduled, evicted.ID)
			res.Assignment.append(worker, o)
		default:
			d.Outcome = Placed
			res.Assignment.append(worker, o)
		}
		res.Decisions = append(res.Decisions, d)
	}
	return res, nil
}
