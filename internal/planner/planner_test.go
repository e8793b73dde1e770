package planner

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pickplan/internal/model"
	"pickplan/internal/opt"
	"pickplan/internal/store"
	"pickplan/internal/webhooks"
)

type captureEvents struct {
	mu     sync.Mutex
	stores []string
	events []model.PlanEvent
}

func (c *captureEvents) Publish(storeID string, evt model.PlanEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores = append(c.stores, storeID)
	c.events = append(c.events, evt)
}

func referenceStore() model.StoreConfig {
	return model.StoreConfig{Pickers: []string{"P1", "P2"}, PickingStartTime: "09:00", PickingEndTime: "11:00"}
}

func orderIn(id, pt, due string) model.OrderIn {
	return model.OrderIn{OrderID: id, OrderValue: decimal.RequireFromString("12.00"), PickingTime: pt, CompleteBy: due}
}

func referenceOrders() []model.OrderIn {
	return []model.OrderIn{
		orderIn("order-1", "PT15M", "09:15"),
		orderIn("order-2", "PT20M", "09:30"),
		orderIn("order-3", "PT15M", "10:15"),
		orderIn("order-4", "PT25M", "10:30"),
		orderIn("order-5", "PT1H", "10:15"),
		orderIn("order-6", "PT30M", "10:45"),
		orderIn("order-7", "PT25M", "11:00"),
	}
}

func TestBuildReferenceDay(t *testing.T) {
	plan, err := Build("s1", "", referenceStore(), referenceOrders())
	require.NoError(t, err)

	require.NotEmpty(t, plan.ID)
	require.Equal(t, "09:00", plan.WindowStart)
	require.Equal(t, "11:00", plan.WindowEnd)
	require.Equal(t, []string{
		"P1 order-1 09:00",
		"P1 order-5 09:15",
		"P1 order-6 10:15",
		"P2 order-2 09:00",
		"P2 order-3 09:20",
		"P2 order-4 09:35",
		"P2 order-7 10:00",
	}, plan.Lines())
	require.Empty(t, plan.Unscheduled)
	require.Equal(t, 7, plan.Stats.Orders)
	require.Equal(t, "10:15", plan.Pickers[0].Slots[1].End)
	require.Equal(t, "PT1H", plan.Pickers[0].Slots[1].PickingTime)
}

func TestBuildReportsEviction(t *testing.T) {
	orders := append(referenceOrders(), orderIn("order-8", "PT50M", "12:00"))
	plan, err := Build("s1", "", referenceStore(), orders)
	require.NoError(t, err)

	require.Equal(t, []string{"order-5"}, plan.Evicted)
	require.Equal(t, []string{"order-5"}, plan.Unscheduled)
	require.Len(t, plan.Pickers[0].Slots, 3)
	require.Equal(t, "order-8", plan.Pickers[0].Slots[2].OrderID)
}

func TestBuildListsIdlePickers(t *testing.T) {
	cfg := referenceStore()
	cfg.Pickers = append(cfg.Pickers, "P3")
	plan, err := Build("s1", "", cfg, nil)
	require.NoError(t, err)
	require.Len(t, plan.Pickers, 3)
	for _, p := range plan.Pickers {
		require.NotNil(t, p.Slots)
		require.Empty(t, p.Slots)
	}
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	_, err := Build("s1", "", model.StoreConfig{PickingStartTime: "09:00", PickingEndTime: "11:00"}, nil)
	require.ErrorIs(t, err, opt.ErrInvalidInput)

	_, err = Build("s1", "", referenceStore(), []model.OrderIn{orderIn("a", "PT0S", "10:00")})
	require.ErrorIs(t, err, opt.ErrInvalidInput)

	_, err = Build("s1", "", referenceStore(), []model.OrderIn{orderIn("a", "soon", "10:00")})
	require.ErrorIs(t, err, opt.ErrInvalidInput)
}

func TestServiceRun(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.PutStoreConfig(ctx, "s1", referenceStore()))
	_, _, err := mem.CreateOrders(ctx, "s1", "2024-05-01", referenceOrders())
	require.NoError(t, err)
	_, err = mem.CreateSubscription(ctx, model.SubscriptionRequest{StoreID: "s1", URL: "http://hook", Events: []string{EventPlanCompleted}})
	require.NoError(t, err)

	events := &captureEvents{}
	svc := NewService(mem, events, webhooks.NewPublisher(mem))

	plan, err := svc.Run(ctx, "s1", "2024-05-01")
	require.NoError(t, err)
	require.Equal(t, "2024-05-01", plan.PlanDate)

	stored, err := mem.GetPlan(ctx, "s1", plan.ID)
	require.NoError(t, err)
	require.Equal(t, plan.Lines(), stored.Lines())

	require.Equal(t, []string{"s1"}, events.stores)
	require.Equal(t, EventPlanCompleted, events.events[0].Type)
	require.Equal(t, plan.ID, events.events[0].Data["planId"])

	due, err := mem.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, EventPlanCompleted, due[0].EventType)

	require.Equal(t, 7, opt.GetMetrics("s1")["2024-05-01"].Orders)
}

func TestServiceRunMissingConfig(t *testing.T) {
	svc := NewService(store.NewMemory(), nil, nil)
	_, err := svc.Run(context.Background(), "nobody", "2024-05-01")
	require.ErrorIs(t, err, store.ErrNotFound)
}
