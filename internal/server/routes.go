package server

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/waitgate/jwt"
	gatemw "github.com/MrEthical07/waitgate/middleware"
	"github.com/go-chi/chi/v5"
)

// EndpointDiscordWebhook is the generic-limiter budget name of the relay route.
const EndpointDiscordWebhook = "discord-webhook"

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		s.router.Method(http.MethodGet, s.opts.MetricsPath, s.deps.Metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/waitlist", s.handleJoin)
		r.Get("/waitlist/stats", s.handleStats)

		r.Get("/discord/webhook", s.handleWebhookStatus)
		r.With(gatemw.EndpointLimit(s.deps.Gate, EndpointDiscordWebhook)).
			Post("/discord/webhook", s.handleWebhookRelay)
	})

	if s.deps.Tokens != nil {
		s.router.Route("/admin", func(r chi.Router) {
			r.With(gatemw.RequireOperator(s.deps.Tokens, jwt.ScopeMetricsRead)).Get("/metrics", s.handleAdminMetrics)
			r.With(gatemw.RequireOperator(s.deps.Tokens, jwt.ScopePoliciesRead)).Get("/policies", s.handleAdminPolicies)
		})
	}
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
