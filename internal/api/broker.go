package api

import (
	"sync"

	"pickplan/internal/model"
)

// EventBroker fans plan events out to live listeners of a store.
type EventBroker interface {
	Subscribe(storeID string) chan model.PlanEvent
	Unsubscribe(storeID string, ch chan model.PlanEvent)
	Publish(storeID string, evt model.PlanEvent)
}

// Broker is the in-process EventBroker. Slow listeners drop events rather
// than block publishers.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan model.PlanEvent]struct{} // storeId -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan model.PlanEvent]struct{}{}}
}

func (b *Broker) Subscribe(storeID string) chan model.PlanEvent {
	ch := make(chan model.PlanEvent, 8)
	b.mu.Lock()
	if b.subs[storeID] == nil {
		b.subs[storeID] = map[chan model.PlanEvent]struct{}{}
	}
	b.subs[storeID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(storeID string, ch chan model.PlanEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[storeID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, storeID)
	}
	close(ch)
}

func (b *Broker) Publish(storeID string, evt model.PlanEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[storeID] {
		select {
		case ch <- evt:
		default:
		}
	}
}
