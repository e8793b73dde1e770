package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"pickplan/internal/auth"
	"pickplan/internal/config"
	"pickplan/internal/metrics"
	"pickplan/internal/planner"
	"pickplan/internal/store"
	"pickplan/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Pub     *webhooks.Publisher
	Planner *planner.Service
	Auth    *auth.Verifier
	Broker  EventBroker

	cfg     *config.Config
	limiter *clientLimiter
}

// NewServer wires the store, broker and planner selected by cfg. Without a
// DATABASE_URL the in-memory store is used.
func NewServer(cfg *config.Config) (*Server, error) {
	var s store.Store
	if cfg.DatabaseURL == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.DBMigrate {
			if err := sp.MigrateDir(cfg.MigrationsDir); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		s = sp
	}

	var broker EventBroker
	switch cfg.EventBroker {
	case config.BrokerRedis:
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis broker: %w", err)
		}
		broker = rb
	case config.BrokerNATS:
		nb, err := NewNATSBroker(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("nats broker: %w", err)
		}
		broker = nb
	default:
		broker = NewBroker()
	}
	log.Info().Str("broker", cfg.EventBroker).Bool("postgres", cfg.DatabaseURL != "").Msg("server dependencies ready")

	return newServer(cfg, s, broker), nil
}

func newServer(cfg *config.Config, s store.Store, broker EventBroker) *Server {
	pub := webhooks.NewPublisher(s)
	return &Server{
		Store:   s,
		Pub:     pub,
		Planner: planner.NewService(s, broker, pub),
		Auth:    auth.NewVerifier(cfg.AuthMode, cfg.AuthHMACSecret),
		Broker:  broker,
		cfg:     cfg,
		limiter: newClientLimiter(cfg.RateRPS, cfg.RateBurst),
	}
}

// Routes builds the HTTP handler for the whole API.
func (s *Server) Routes() http.Handler {
	metrics.RegisterDefault()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(logRequests)
	r.Use(recordMetrics)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.HealthHandler)
	r.Get("/readyz", s.ReadyHandler)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/debug/info", s.DebugJSON)
	r.Get("/openapi.yaml", s.OpenAPIHandler)
	r.Get("/openapi.json", s.OpenAPIJSONHandler)
	r.Get("/docs", s.DocsHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.authenticate)

		r.Post("/schedule", s.ScheduleHandler)

		r.Route("/stores/{storeId}", func(r chi.Router) {
			r.Use(s.requireStore)

			r.Get("/config", s.GetStoreConfigHandler)
			r.With(requireRole(roleWriters...)).Put("/config", s.PutStoreConfigHandler)

			r.Get("/orders", s.ListOrdersHandler)
			r.With(requireRole(roleWriters...)).Post("/orders", s.CreateOrdersHandler)
			r.With(requireRole(roleWriters...)).Delete("/orders", s.DeleteOrdersHandler)

			r.Get("/plans", s.ListPlansHandler)
			r.With(requireRole(roleWriters...)).Post("/plans", s.CreatePlanHandler)
			r.Get("/plans/{planId}", s.GetPlanHandler)
			r.Get("/plans/{planId}/timeline", s.PlanTimelineHandler)

			r.Get("/run-metrics", s.RunMetricsHandler)
			r.Get("/events/ws", s.EventsWSHandler)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(requireRole(auth.RoleAdmin))
			r.Get("/", s.ListSubscriptionsHandler)
			r.Post("/", s.CreateSubscriptionHandler)
			r.Delete("/{id}", s.DeleteSubscriptionHandler)
		})
	})
	return r
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store, s.cfg.WebhookMaxAttempts, s.cfg.WebhookPollInterval)
}

// Close releases broker and database connections.
func (s *Server) Close() {
	type closer interface{ Close() error }
	switch b := s.Broker.(type) {
	case *NATSBroker:
		b.Close()
	case closer:
		_ = b.Close()
	}
	if c, ok := s.Store.(closer); ok {
		_ = c.Close()
	}
}

type pinger interface{ Ping(ctx context.Context) error }
