package opt

// FindDeputy picks a worker for an order that no worker could absorb,
// evicting one committed order to make room.
//
// An idle worker is returned straight away with no eviction. Otherwise the
// evictable orders are those that take strictly longer to pick than
// candidate and are due no later than the running threshold (initially the
// end of the window); the one due soonest wins, first encountered on ties
// (pool order, then queue order). The winner is removed from its queue and
// dropped for good. When nothing qualifies, ok is false and a is untouched.
func FindDeputy(a *Assignment, candidate Order, w Window) (worker string, evicted *Order, ok bool) {
	for _, q := range a.Queues {
		if len(q.Orders) == 0 {
			return q.WorkerID, nil, true
		}
	}

	threshold := w.End
	bestQueue, bestPos := -1, -1
	for qi, q := range a.Queues {
		for pos, o := range q.Orders {
			if o.PickingTime <= candidate.PickingTime || o.CompleteBy.After(threshold) {
				continue
			}
			if bestQueue >= 0 && !o.CompleteBy.Before(threshold) {
				continue
			}
			bestQueue, bestPos = qi, pos
			threshold = o.CompleteBy
		}
	}
	if bestQueue < 0 {
		return "", nil, false
	}

	q := &a.Queues[bestQueue]
	out := q.Orders[bestPos]
	q.Orders = append(q.Orders[:bestPos:bestPos], q.Orders[bestPos+1:]...)
	return q.WorkerID, &out, true
}
