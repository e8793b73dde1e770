package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"pickplan/internal/model"
)

// NATSBroker implements EventBroker over core NATS subjects, one subject
// per store: pickplan.events.<storeId>.
type NATSBroker struct {
	nc   *nats.Conn
	mu   sync.Mutex
	subs map[chan model.PlanEvent]*natsListener
}

type natsListener struct {
	mu     sync.Mutex
	closed bool
	ch     chan model.PlanEvent
	sub    *nats.Subscription
}

// deliver drops the event when the listener is behind or already gone.
func (l *natsListener) deliver(evt model.PlanEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.ch <- evt:
	default:
	}
}

func (l *natsListener) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.ch)
	}
}

func NewNATSBroker(url string) (*NATSBroker, error) {
	nc, err := nats.Connect(url,
		nats.Name("pickplan-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATSBroker{nc: nc, subs: map[chan model.PlanEvent]*natsListener{}}, nil
}

func (b *NATSBroker) Subscribe(storeID string) chan model.PlanEvent {
	l := &natsListener{ch: make(chan model.PlanEvent, 16)}
	sub, err := b.nc.Subscribe(b.subject(storeID), func(m *nats.Msg) {
		var evt model.PlanEvent
		if err := json.Unmarshal(m.Data, &evt); err != nil {
			return
		}
		l.deliver(evt)
	})
	if err != nil {
		log.Warn().Err(err).Str("store", storeID).Msg("nats subscribe")
		l.close()
		return l.ch
	}
	l.sub = sub
	b.mu.Lock()
	b.subs[l.ch] = l
	b.mu.Unlock()
	return l.ch
}

func (b *NATSBroker) Unsubscribe(storeID string, ch chan model.PlanEvent) {
	b.mu.Lock()
	l, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if !ok {
		return
	}
	if err := l.sub.Unsubscribe(); err != nil {
		log.Debug().Err(err).Msg("nats unsubscribe")
	}
	l.close()
}

func (b *NATSBroker) Publish(storeID string, evt model.PlanEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := b.nc.Publish(b.subject(storeID), data); err != nil {
		log.Warn().Err(err).Str("store", storeID).Msg("nats publish")
	}
}

func (b *NATSBroker) Close() { b.nc.Close() }

func (b *NATSBroker) subject(storeID string) string { return "pickplan.events." + storeID }
