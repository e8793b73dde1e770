package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pickplan/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu      sync.Mutex
	configs map[string]model.StoreConfig   // storeId -> config
	orders  map[dayKey][]model.OrderIn     // (store, date) -> orders in arrival order
	plans   map[string]model.Plan          // planId -> plan
	byStore map[string][]string            // storeId -> plan ids, oldest first
	subs    map[string][]model.Subscription // storeId -> subscriptions
	// Webhooks queue state
	deliveries map[string]*memDelivery // id -> delivery state
	order      []string                // delivery ids in enqueue order
	dlq        []map[string]any        // dead-lettered deliveries
}

type dayKey struct {
	Store string
	Date  string
}

func NewMemory() *Memory {
	return &Memory{
		configs:    map[string]model.StoreConfig{},
		orders:     map[dayKey][]model.OrderIn{},
		plans:      map[string]model.Plan{},
		byStore:    map[string][]string{},
		subs:       map[string][]model.Subscription{},
		deliveries: map[string]*memDelivery{},
		dlq:        []map[string]any{},
	}
}

// memDelivery augments WebhookDelivery with scheduling/metrics
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func (m *Memory) PutStoreConfig(ctx context.Context, storeID string, cfg model.StoreConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.Pickers = append([]string(nil), cfg.Pickers...)
	m.configs[storeID] = cfg
	return nil
}

func (m *Memory) GetStoreConfig(ctx context.Context, storeID string) (model.StoreConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[storeID]
	if !ok {
		return model.StoreConfig{}, ErrNotFound
	}
	cfg.Pickers = append([]string(nil), cfg.Pickers...)
	return cfg, nil
}

func (m *Memory) CreateOrders(ctx context.Context, storeID, planDate string, orders []model.OrderIn) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := dayKey{Store: storeID, Date: planDate}
	seen := map[string]bool{}
	for _, o := range m.orders[k] {
		seen[o.OrderID] = true
	}
	created, skipped := 0, 0
	for _, o := range orders {
		if seen[o.OrderID] {
			skipped++
			continue
		}
		seen[o.OrderID] = true
		m.orders[k] = append(m.orders[k], o)
		created++
	}
	return created, skipped, nil
}

func (m *Memory) ListOrders(ctx context.Context, storeID, planDate string) ([]model.OrderIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.OrderIn{}, m.orders[dayKey{Store: storeID, Date: planDate}]...), nil
}

func (m *Memory) DeleteOrders(ctx context.Context, storeID, planDate string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := dayKey{Store: storeID, Date: planDate}
	n := len(m.orders[k])
	delete(m.orders, k)
	return n, nil
}

func (m *Memory) SavePlan(ctx context.Context, plan model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.plans[plan.ID]; !exists {
		m.byStore[plan.StoreID] = append(m.byStore[plan.StoreID], plan.ID)
	}
	m.plans[plan.ID] = plan
	return nil
}

func (m *Memory) GetPlan(ctx context.Context, storeID, planID string) (model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[planID]
	if !ok || p.StoreID != storeID {
		return model.Plan{}, ErrNotFound
	}
	return p, nil
}

// ListPlans returns plans newest first. The cursor is the id of the last
// plan on the previous page; an id not listed for the store is
// ErrInvalidCursor.
func (m *Memory) ListPlans(ctx context.Context, storeID, cursor string, limit int) ([]model.Plan, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.byStore[storeID]
	if limit <= 0 {
		limit = 100
	}
	start := len(ids) - 1
	if cursor != "" {
		pos := slices.Index(ids, cursor)
		if pos < 0 {
			return nil, "", ErrInvalidCursor
		}
		start = pos - 1
	}
	out := []model.Plan{}
	var next string
	for i := start; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.plans[ids[i]])
		next = ids[i]
	}
	if len(out) < limit || start-len(out) < 0 {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), StoreID: req.StoreID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[req.StoreID] = append(m.subs[req.StoreID], s)
	return s, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, storeID string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Subscription, len(m.subs[storeID]))
	for i, s := range m.subs[storeID] {
		s.Secret = ""
		out[i] = s
	}
	return out, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, storeID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[storeID]
	for i := range list {
		if list[i].ID == id {
			m.subs[storeID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, storeID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs[storeID] {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, storeID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{ID: id, StoreID: storeID, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending"},
		NextAttemptAt:   time.Now(),
	}
	m.order = append(m.order, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	due := []*memDelivery{}
	for _, id := range m.order {
		d := m.deliveries[id]
		if d != nil && (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
			due = append(due, d)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	out := []WebhookDelivery{}
	for _, d := range due {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, d.WebhookDelivery)
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
		return nil
	}
	d.Status = "retry"
	d.LastError = lastError
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	} else {
		d.NextAttemptAt = time.Now().Add(1 * time.Minute)
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	m.dlq = append(m.dlq, map[string]any{"id": id, "lastError": lastError, "responseCode": responseCode, "latencyMs": latencyMs})
	return nil
}

// DeadLetters returns deliveries that exhausted their attempts.
func (m *Memory) DeadLetters() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.dlq...)
}
