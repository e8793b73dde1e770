package opt

import (
	"sync"
	"time"
)

// RunMetrics summarises one scheduling run.
type RunMetrics struct {
	Orders      int
	Placed      int
	Displaced   int
	Unscheduled int
	Evicted     int
	Duration    time.Duration
	RecordedAt  time.Time
}

// Summarize counts the outcomes in res.
func Summarize(res Result, took time.Duration) RunMetrics {
	m := RunMetrics{Duration: took, RecordedAt: time.Now().UTC()}
	for _, d := range res.Decisions {
		m.Orders++
		switch d.Outcome {
		case Placed:
			m.Placed++
		case Displaced:
			m.Displaced++
		}
	}
	m.Unscheduled = len(res.Unscheduled)
	m.Evicted = len(res.Evicted)
	return m
}

type key struct {
	Store    string
	PlanDate string
}

var (
	mu    sync.Mutex
	store = map[key]RunMetrics{}
)

// RecordMetrics keeps the latest run metrics for a store and plan date.
func RecordMetrics(storeID, planDate string, m RunMetrics) {
	mu.Lock()
	store[key{Store: storeID, PlanDate: planDate}] = m
	mu.Unlock()
}

// GetMetrics returns the latest metrics per plan date for a store.
func GetMetrics(storeID string) map[string]RunMetrics {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]RunMetrics{}
	for k, v := range store {
		if k.Store == storeID {
			out[k.PlanDate] = v
		}
	}
	return out
}
