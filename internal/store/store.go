package store

import (
	"context"
	"errors"
	"time"

	"pickplan/internal/model"
)

// Store is the persistence interface used by the API server and planner.
type Store interface {
	// Store configuration
	PutStoreConfig(ctx context.Context, storeID string, cfg model.StoreConfig) error
	GetStoreConfig(ctx context.Context, storeID string) (model.StoreConfig, error)

	// Orders for a store and plan date. Orders are deduplicated by order id.
	CreateOrders(ctx context.Context, storeID, planDate string, orders []model.OrderIn) (created, skipped int, err error)
	ListOrders(ctx context.Context, storeID, planDate string) ([]model.OrderIn, error)
	DeleteOrders(ctx context.Context, storeID, planDate string) (deleted int, err error)

	// Plans
	SavePlan(ctx context.Context, plan model.Plan) error
	GetPlan(ctx context.Context, storeID, planID string) (model.Plan, error)
	ListPlans(ctx context.Context, storeID, cursor string, limit int) ([]model.Plan, string, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	ListSubscriptions(ctx context.Context, storeID string) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, storeID, id string) error
	GetSubscriptionsForEvent(ctx context.Context, storeID, eventType string) ([]model.Subscription, error)

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, storeID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}

var ErrNotFound = errors.New("not found")

// ErrInvalidCursor is returned by ListPlans for a cursor it did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")
