package opt

// CanAppend reports whether candidate can go at the tail of queue without
// breaking the working window. It assumes back-to-back picking with no
// gaps and does not simulate the clock: it works backwards from the
// candidate's deadline, giving every queued order its picking time first,
// and checks the result still starts inside the window.
func CanAppend(queue []Order, candidate Order, w Window) bool {
	if len(queue) == 0 {
		return true
	}
	if queue[len(queue)-1].CompleteBy.After(w.End) {
		return false
	}
	return requiredStart(queue, candidate, w) >= w.Start
}

// requiredStart is when candidate would have to begin if everything
// already in queue is picked ahead of it.
func requiredStart(queue []Order, candidate Order, w Window) Clock {
	start := candidate.LatestStartTime()
	if candidate.CompleteBy.After(w.End) {
		// nobody picks past the end of the window
		start = w.End.Sub(candidate.PickingTime)
	}
	for _, o := range queue {
		start = start.Sub(o.PickingTime)
	}
	return start
}
