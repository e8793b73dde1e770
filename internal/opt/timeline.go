package opt

import (
	"fmt"
	"time"
)

// Slot is one line of a picker's day.
type Slot struct {
	WorkerID    string
	OrderID     string
	Start       Clock
	PickingTime time.Duration
}

func (s Slot) End() Clock { return s.Start.Add(s.PickingTime) }

// String renders the slot as "<picker> <order> <start>".
func (s Slot) String() string {
	return fmt.Sprintf("%s %s %s", s.WorkerID, s.OrderID, s.Start)
}

// Project lays each picker's queue end to end from the window start, in
// pool order. It trusts the assignment and re-checks nothing; pickers with
// no orders, or no queue at all, contribute no slots.
func Project(a *Assignment, pool WorkerPool) []Slot {
	var slots []Slot
	for _, w := range pool.Workers {
		start := pool.Window.Start
		for _, o := range a.Queue(w) {
			slots = append(slots, Slot{WorkerID: w, OrderID: o.ID, Start: start, PickingTime: o.PickingTime})
			start = start.Add(o.PickingTime)
		}
	}
	return slots
}
