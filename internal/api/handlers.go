package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"pickplan/internal/model"
	"pickplan/internal/opt"
	"pickplan/internal/planner"
	"pickplan/internal/store"
)

func (s *Server) GetStoreConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.Store.GetStoreConfig(r.Context(), chi.URLParam(r, "storeId"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Store not configured", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Load store config failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) PutStoreConfigHandler(w http.ResponseWriter, r *http.Request) {
	var cfg model.StoreConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if _, err := cfg.Pool(); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid store config", err.Error(), r.URL.Path)
		return
	}
	if err := s.Store.PutStoreConfig(r.Context(), chi.URLParam(r, "storeId"), cfg); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save store config failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// CreateOrdersHandler handles POST /v1/stores/{storeId}/orders?date=. The
// body is a JSON array of orders; ids already stored for the day are skipped.
func (s *Server) CreateOrdersHandler(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeId")
	date := r.URL.Query().Get("date")
	if err := validatePlanDate(date); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid date", err.Error(), r.URL.Path)
		return
	}
	var orders []model.OrderIn
	if err := json.NewDecoder(r.Body).Decode(&orders); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateOrders(orders); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid orders", err.Error(), r.URL.Path)
		return
	}
	created, skipped, err := s.Store.CreateOrders(r.Context(), storeID, date, orders)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create orders failed", err.Error(), r.URL.Path)
		return
	}
	if created > 0 {
		s.Pub.Emit(r.Context(), storeID, "orders.created", map[string]any{"planDate": date, "created": created})
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"created": created, "skipped": skipped})
}

func (s *Server) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if err := validatePlanDate(date); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid date", err.Error(), r.URL.Path)
		return
	}
	items, err := s.Store.ListOrders(r.Context(), chi.URLParam(r, "storeId"), date)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List orders failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) DeleteOrdersHandler(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeId")
	date := r.URL.Query().Get("date")
	if err := validatePlanDate(date); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid date", err.Error(), r.URL.Path)
		return
	}
	n, err := s.Store.DeleteOrders(r.Context(), storeID, date)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Delete orders failed", err.Error(), r.URL.Path)
		return
	}
	if n > 0 {
		s.Pub.Emit(r.Context(), storeID, "orders.deleted", map[string]any{"planDate": date, "deleted": n})
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// CreatePlanHandler handles POST /v1/stores/{storeId}/plans
func (s *Server) CreatePlanHandler(w http.ResponseWriter, r *http.Request) {
	var req model.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validatePlanDate(req.PlanDate); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid planDate", err.Error(), r.URL.Path)
		return
	}
	plan, err := s.Planner.Run(r.Context(), chi.URLParam(r, "storeId"), req.PlanDate)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Store not configured", err.Error(), r.URL.Path)
		return
	case errors.Is(err, opt.ErrInvalidInput):
		writeInputProblem(w, "Invalid scheduling input", err, r.URL.Path)
		return
	case err != nil:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("plan run failed")
		writeProblem(w, http.StatusInternalServerError, "Plan failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) ListPlansHandler(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", v, r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListPlans(r.Context(), chi.URLParam(r, "storeId"), r.URL.Query().Get("cursor"), limit)
	if errors.Is(err, store.ErrInvalidCursor) {
		writeProblem(w, http.StatusBadRequest, "Invalid cursor", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List plans failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

func (s *Server) GetPlanHandler(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.loadPlan(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// PlanTimelineHandler renders a plan as text, one "<picker> <order> <start>" line per slot.
func (s *Server) PlanTimelineHandler(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.loadPlan(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, line := range plan.Lines() {
		_, _ = w.Write([]byte(line + "\n"))
	}
}

func (s *Server) loadPlan(w http.ResponseWriter, r *http.Request) (model.Plan, bool) {
	plan, err := s.Store.GetPlan(r.Context(), chi.URLParam(r, "storeId"), chi.URLParam(r, "planId"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Plan not found", "", r.URL.Path)
		return model.Plan{}, false
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Load plan failed", err.Error(), r.URL.Path)
		return model.Plan{}, false
	}
	return plan, true
}

// RunMetricsHandler reports the latest in-process run summary per plan date.
func (s *Server) RunMetricsHandler(w http.ResponseWriter, r *http.Request) {
	ms := opt.GetMetrics(chi.URLParam(r, "storeId"))
	items := make([]map[string]any, 0, len(ms))
	for date, m := range ms {
		items = append(items, map[string]any{
			"planDate":    date,
			"orders":      m.Orders,
			"placed":      m.Placed,
			"displaced":   m.Displaced,
			"unscheduled": m.Unscheduled,
			"evicted":     m.Evicted,
			"durationMs":  float64(m.Duration.Microseconds()) / 1000,
			"recordedAt":  m.RecordedAt.Format(time.RFC3339),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i]["planDate"].(string) < items[j]["planDate"].(string) })
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// ScheduleHandler handles POST /v1/schedule: a one-off run over the posted
// store and orders. Nothing is stored.
func (s *Server) ScheduleHandler(w http.ResponseWriter, r *http.Request) {
	var req model.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	plan, err := planner.Build("", "", req.Store, req.Orders)
	if errors.Is(err, opt.ErrInvalidInput) {
		writeInputProblem(w, "Invalid scheduling input", err, r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Schedule failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// CreateSubscriptionHandler handles POST /v1/subscriptions (admin). The store
// defaults to the caller's own.
func (s *Server) CreateSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	var req model.SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.StoreID == "" {
		req.StoreID = p.StoreID
	}
	if req.StoreID == "" || req.StoreID == AllStores {
		writeProblem(w, http.StatusBadRequest, "Invalid subscription", "storeId is required", r.URL.Path)
		return
	}
	if !p.CanAccess(req.StoreID) {
		writeProblem(w, http.StatusForbidden, "Forbidden", "not authorized for this store", r.URL.Path)
		return
	}
	if err := validateSubscription(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
		return
	}
	sub, err := s.Store.CreateSubscription(r.Context(), req)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
		return
	}
	sub.Secret = ""
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) ListSubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	storeID, ok := subscriptionStore(w, r)
	if !ok {
		return
	}
	items, err := s.Store.ListSubscriptions(r.Context(), storeID)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) DeleteSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	storeID, ok := subscriptionStore(w, r)
	if !ok {
		return
	}
	err := s.Store.DeleteSubscription(r.Context(), storeID, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Subscription not found", "", r.URL.Path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// subscriptionStore picks the store for list and delete: ?storeId= for
// callers scoped to all stores, otherwise the caller's own.
func subscriptionStore(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := principalFrom(r.Context())
	storeID := r.URL.Query().Get("storeId")
	if storeID == "" {
		storeID = p.StoreID
	}
	if storeID == "" || storeID == AllStores {
		writeProblem(w, http.StatusBadRequest, "Missing storeId", "", r.URL.Path)
		return "", false
	}
	if !p.CanAccess(storeID) {
		writeProblem(w, http.StatusForbidden, "Forbidden", "not authorized for this store", r.URL.Path)
		return "", false
	}
	return storeID, true
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler checks the database and event broker when they support it.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	var failed []string
	for name, dep := range map[string]any{"store": s.Store, "broker": s.Broker} {
		if p, ok := dep.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				failed = append(failed, name+": "+err.Error())
			}
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", strings.Join(failed, "; "), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
