package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sosodev/duration"

	"pickplan/internal/opt"
)

// StoreConfig is a store's picker roster and working window, in the same
// shape as the store configuration files.
type StoreConfig struct {
	Pickers          []string `json:"pickers" yaml:"pickers"`
	PickingStartTime string   `json:"pickingStartTime" yaml:"pickingStartTime"`
	PickingEndTime   string   `json:"pickingEndTime" yaml:"pickingEndTime"`
}

// OrderIn is one order as received from files or the API.
type OrderIn struct {
	OrderID     string          `json:"orderId"`
	OrderValue  decimal.Decimal `json:"orderValue"`
	PickingTime string          `json:"pickingTime"` // ISO-8601, e.g. PT15M
	CompleteBy  string          `json:"completeBy"`  // HH:MM
}

// Pool converts the config into an engine worker pool. Field format errors
// and pool validation errors both match opt.ErrInvalidInput.
func (c StoreConfig) Pool() (opt.WorkerPool, error) {
	start, err := opt.ParseClock(c.PickingStartTime)
	if err != nil {
		return opt.WorkerPool{}, fmt.Errorf("%w: pickingStartTime: %v", opt.ErrInvalidInput, err)
	}
	end, err := opt.ParseClock(c.PickingEndTime)
	if err != nil {
		return opt.WorkerPool{}, fmt.Errorf("%w: pickingEndTime: %v", opt.ErrInvalidInput, err)
	}
	pool := opt.WorkerPool{
		Workers: append([]string(nil), c.Pickers...),
		Window:  opt.Window{Start: start, End: end},
	}
	if err := opt.ValidatePool(pool); err != nil {
		return opt.WorkerPool{}, err
	}
	return pool, nil
}

// Order converts the wire order into an engine order.
func (o OrderIn) Order() (opt.Order, error) {
	d, err := ParsePickingTime(o.PickingTime)
	if err != nil {
		return opt.Order{}, fmt.Errorf("%w: order %q pickingTime: %v", opt.ErrInvalidInput, o.OrderID, err)
	}
	due, err := opt.ParseClock(o.CompleteBy)
	if err != nil {
		return opt.Order{}, fmt.Errorf("%w: order %q completeBy: %v", opt.ErrInvalidInput, o.OrderID, err)
	}
	return opt.NewOrder(o.OrderID, o.OrderValue, d, due), nil
}

// ToOrders converts a batch, stopping at the first malformed order.
func ToOrders(in []OrderIn) ([]opt.Order, error) {
	out := make([]opt.Order, 0, len(in))
	for _, o := range in {
		v, err := o.Order()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ParsePickingTime parses an ISO-8601 duration such as PT15M or PT1H30M.
func ParsePickingTime(s string) (time.Duration, error) {
	d, err := duration.Parse(s)
	if err != nil {
		return 0, err
	}
	return d.ToTimeDuration(), nil
}

// FormatPickingTime renders d as an ISO-8601 duration.
func FormatPickingTime(d time.Duration) string {
	return duration.FromTimeDuration(d).String()
}

// Plan is a stored scheduling run for one store and day.
type Plan struct {
	ID          string       `json:"id"`
	StoreID     string       `json:"storeId"`
	PlanDate    string       `json:"planDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	WindowStart string       `json:"windowStart"`
	WindowEnd   string       `json:"windowEnd"`
	Pickers     []PickerPlan `json:"pickers"`
	Unscheduled []string     `json:"unscheduled"`
	Evicted     []string     `json:"evicted"`
	Stats       PlanStats    `json:"stats"`
}

// PickerPlan is one picker's timeline within a plan. Pickers with no work
// are listed with no slots.
type PickerPlan struct {
	PickerID string `json:"pickerId"`
	Slots    []Slot `json:"slots"`
}

type Slot struct {
	OrderID     string `json:"orderId"`
	Start       string `json:"start"`
	End         string `json:"end"`
	PickingTime string `json:"pickingTime"`
}

type PlanStats struct {
	Orders      int     `json:"orders"`
	Placed      int     `json:"placed"`
	Displaced   int     `json:"displaced"`
	Unscheduled int     `json:"unscheduled"`
	Evicted     int     `json:"evicted"`
	DurationMs  float64 `json:"durationMs"`
}

// Lines renders the plan the way the CLI prints it: "<picker> <order> <start>".
func (p Plan) Lines() []string {
	var out []string
	for _, pk := range p.Pickers {
		for _, s := range pk.Slots {
			out = append(out, pk.PickerID+" "+s.OrderID+" "+s.Start)
		}
	}
	return out
}

// ScheduleRequest runs the engine without touching storage.
type ScheduleRequest struct {
	Store  StoreConfig `json:"store"`
	Orders []OrderIn   `json:"orders"`
}

type PlanRequest struct {
	PlanDate string `json:"planDate"`
}

// PlanEvent is broadcast to live listeners of a store.
type PlanEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type SubscriptionRequest struct {
	StoreID string   `json:"storeId"`
	URL     string   `json:"url"`
	Events  []string `json:"events"`
	Secret  string   `json:"secret"`
}

type Subscription struct {
	ID      string   `json:"id"`
	StoreID string   `json:"storeId"`
	URL     string   `json:"url"`
	Events  []string `json:"events"`
	Secret  string   `json:"secret,omitempty"`
}
