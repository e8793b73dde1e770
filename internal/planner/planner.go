// Package planner turns stored store configuration and orders into picking
// plans and announces them.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pickplan/internal/metrics"
	"pickplan/internal/model"
	"pickplan/internal/opt"
	"pickplan/internal/store"
	"pickplan/internal/webhooks"
)

// EventPlanCompleted is published on the event broker and to webhook
// subscribers after a plan is stored.
const EventPlanCompleted = "plan.completed"

// EventPublisher delivers live events to listeners of a store.
type EventPublisher interface {
	Publish(storeID string, evt model.PlanEvent)
}

type Service struct {
	Store    store.Store
	Events   EventPublisher
	Webhooks *webhooks.Publisher
}

func NewService(s store.Store, events EventPublisher, hooks *webhooks.Publisher) *Service {
	return &Service{Store: s, Events: events, Webhooks: hooks}
}

// Run plans one store day from stored state, saves the plan and announces it.
func (s *Service) Run(ctx context.Context, storeID, planDate string) (model.Plan, error) {
	cfg, err := s.Store.GetStoreConfig(ctx, storeID)
	if err != nil {
		return model.Plan{}, fmt.Errorf("load store config: %w", err)
	}
	orders, err := s.Store.ListOrders(ctx, storeID, planDate)
	if err != nil {
		return model.Plan{}, fmt.Errorf("load orders: %w", err)
	}

	plan, err := Build(storeID, planDate, cfg, orders)
	if err != nil {
		return model.Plan{}, err
	}
	if err := s.Store.SavePlan(ctx, plan); err != nil {
		return model.Plan{}, fmt.Errorf("save plan: %w", err)
	}

	log.Info().
		Str("store", storeID).
		Str("plan_date", planDate).
		Str("plan", plan.ID).
		Int("placed", plan.Stats.Placed+plan.Stats.Displaced).
		Int("unscheduled", plan.Stats.Unscheduled).
		Int("evicted", plan.Stats.Evicted).
		Msg("plan completed")

	data := map[string]any{
		"planId":      plan.ID,
		"planDate":    planDate,
		"unscheduled": plan.Unscheduled,
		"evicted":     plan.Evicted,
	}
	if s.Events != nil {
		s.Events.Publish(storeID, model.PlanEvent{Type: EventPlanCompleted, Data: data})
	}
	if s.Webhooks != nil {
		s.Webhooks.Emit(ctx, storeID, EventPlanCompleted, data)
	}
	return plan, nil
}

// Build converts cfg and orders, runs the engine and shapes the result as a
// plan. Nothing is stored. Conversion and validation failures match
// opt.ErrInvalidInput.
func Build(storeID, planDate string, cfg model.StoreConfig, in []model.OrderIn) (model.Plan, error) {
	pool, err := cfg.Pool()
	if err != nil {
		metrics.PlanRuns.WithLabelValues("invalid").Inc()
		return model.Plan{}, err
	}
	orders, err := model.ToOrders(in)
	if err != nil {
		metrics.PlanRuns.WithLabelValues("invalid").Inc()
		return model.Plan{}, err
	}

	start := time.Now()
	res, err := opt.Schedule(orders, pool)
	took := time.Since(start)
	if err != nil {
		outcome := "error"
		if errors.Is(err, opt.ErrInvalidInput) {
			outcome = "invalid"
		}
		metrics.PlanRuns.WithLabelValues(outcome).Inc()
		return model.Plan{}, err
	}

	for _, d := range res.Decisions {
		ev := log.Debug().Str("store", storeID).Str("order", d.OrderID).Str("outcome", string(d.Outcome))
		if d.WorkerID != "" {
			ev = ev.Str("picker", d.WorkerID)
		}
		if d.Evicted != "" {
			ev = ev.Str("evicted", d.Evicted)
		}
		ev.Msg("order decision")
	}

	run := opt.Summarize(res, took)
	metrics.PlanRuns.WithLabelValues("ok").Inc()
	metrics.PlanDuration.Observe(took.Seconds())
	metrics.PlanOrders.WithLabelValues("placed").Add(float64(run.Placed))
	metrics.PlanOrders.WithLabelValues("displaced").Add(float64(run.Displaced))
	metrics.PlanOrders.WithLabelValues("unscheduled").Add(float64(run.Unscheduled))
	metrics.PlanEvictions.Add(float64(run.Evicted))
	if planDate != "" {
		opt.RecordMetrics(storeID, planDate, run)
	}

	return shape(storeID, planDate, pool, res, run), nil
}

func shape(storeID, planDate string, pool opt.WorkerPool, res opt.Result, run opt.RunMetrics) model.Plan {
	byWorker := map[string][]model.Slot{}
	for _, sl := range opt.Project(res.Assignment, pool) {
		byWorker[sl.WorkerID] = append(byWorker[sl.WorkerID], model.Slot{
			OrderID:     sl.OrderID,
			Start:       sl.Start.String(),
			End:         sl.End().String(),
			PickingTime: model.FormatPickingTime(sl.PickingTime),
		})
	}
	pickers := make([]model.PickerPlan, 0, len(pool.Workers))
	for _, w := range pool.Workers {
		slots := byWorker[w]
		if slots == nil {
			slots = []model.Slot{}
		}
		pickers = append(pickers, model.PickerPlan{PickerID: w, Slots: slots})
	}
	return model.Plan{
		ID:          uuid.New().String(),
		StoreID:     storeID,
		PlanDate:    planDate,
		CreatedAt:   time.Now().UTC(),
		WindowStart: pool.Window.Start.String(),
		WindowEnd:   pool.Window.End.String(),
		Pickers:     pickers,
		Unscheduled: nonNil(res.Unscheduled),
		Evicted:     nonNil(res.Evicted),
		Stats: model.PlanStats{
			Orders:      run.Orders,
			Placed:      run.Placed,
			Displaced:   run.Displaced,
			Unscheduled: run.Unscheduled,
			Evicted:     run.Evicted,
			DurationMs:  float64(run.Duration.Microseconds()) / 1000,
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
