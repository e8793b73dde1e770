package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pickplan/internal/store"
)

// Publisher fans an event out to every matching subscription of a store by
// queueing one delivery per subscription. Delivery happens in Worker.
type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit queues eventType for all subscriptions of storeID. It returns the
// number of deliveries queued.
func (p *Publisher) Emit(ctx context.Context, storeID, eventType string, data any) int {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, storeID, eventType)
	if err != nil {
		log.Warn().Err(err).Str("store", storeID).Str("event", eventType).Msg("webhook subscriptions lookup failed")
		return 0
	}
	if len(subs) == 0 {
		return 0
	}
	now := time.Now()
	payload := map[string]any{
		"id":      fmt.Sprintf("evt_%d", now.UnixNano()),
		"type":    eventType,
		"storeId": storeID,
		"ts":      now.UTC().Format(time.RFC3339),
		"data":    data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", eventType).Msg("webhook payload encode failed")
		return 0
	}
	queued := 0
	for _, s := range subs {
		if _, err := p.Store.EnqueueWebhook(ctx, storeID, s.ID, eventType, s.URL, s.Secret, body); err != nil {
			log.Warn().Err(err).Str("subscription", s.ID).Msg("webhook enqueue failed")
			continue
		}
		queued++
	}
	return queued
}
