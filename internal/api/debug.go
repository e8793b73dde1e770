package api

import (
	"net/http"
	"time"

	"pickplan/internal/buildinfo"
)

// DebugJSON reports build info and the non-secret parts of the running config.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	c := s.cfg
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"environment":         c.Environment,
			"port":                c.Port,
			"authMode":            c.AuthMode,
			"eventBroker":         c.EventBroker,
			"rateRps":             c.RateRPS,
			"rateBurst":           c.RateBurst,
			"trustProxy":          c.TrustProxy,
			"webhookMaxAttempts":  c.WebhookMaxAttempts,
			"webhookPollInterval": c.WebhookPollInterval.String(),
			"hasDatabaseUrl":      c.DatabaseURL != "",
			"hasRedisUrl":         c.RedisURL != "",
			"hasNatsUrl":          c.NATSURL != "",
		},
	})
}
