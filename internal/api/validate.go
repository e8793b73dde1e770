package api

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"pickplan/internal/model"
)

// Events a webhook subscription may ask for.
var knownEvents = map[string]struct{}{
	"*":              {},
	"plan.completed": {},
	"orders.created": {},
	"orders.deleted": {},
}

func validatePlanDate(d string) error {
	if d == "" {
		return errors.New("date is required")
	}
	if _, err := time.Parse(time.DateOnly, d); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %q", d)
	}
	return nil
}

// validateOrders checks every order converts and ids are unique in the batch.
func validateOrders(in []model.OrderIn) error {
	if len(in) == 0 {
		return errors.New("no orders")
	}
	seen := map[string]struct{}{}
	for _, o := range in {
		if o.OrderID == "" {
			return errors.New("orderId is required")
		}
		if _, dup := seen[o.OrderID]; dup {
			return fmt.Errorf("duplicate orderId %q", o.OrderID)
		}
		seen[o.OrderID] = struct{}{}
		ord, err := o.Order()
		if err != nil {
			return err
		}
		if ord.PickingTime <= 0 {
			return fmt.Errorf("order %q: pickingTime must be positive", o.OrderID)
		}
	}
	return nil
}

func validateSubscription(req *model.SubscriptionRequest) error {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) url: %q", req.URL)
	}
	if len(req.Events) == 0 {
		return errors.New("events must not be empty")
	}
	for _, e := range req.Events {
		if _, ok := knownEvents[e]; !ok {
			return fmt.Errorf("unknown event %q", e)
		}
	}
	return nil
}
