package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/waitgate"
	"github.com/MrEthical07/waitgate/metrics/export/internaldefs"
	gatemw "github.com/MrEthical07/waitgate/middleware"
	"github.com/MrEthical07/waitgate/notify/discord"
	"github.com/MrEthical07/waitgate/waitlist"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

type joinRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type joinResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	AlreadyJoined bool   `json:"already_joined,omitempty"`
	Reason        string `json:"reason,omitempty"`
	RetryAfter    int    `json:"retry_after,omitempty"`
}

// handleJoin accepts a form post (email, cf-turnstile-response) or a JSON body.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req joinRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form body")
			return
		}
		req.Email = r.PostForm.Get("email")
		req.Token = r.PostForm.Get("cf-turnstile-response")
		if req.Token == "" {
			req.Token = r.PostForm.Get("token")
		}
	}

	ip := waitgate.ClientIPFromContext(r.Context())
	res, err := s.deps.Waitlist.Join(r.Context(), waitlist.JoinRequest{IP: ip, Email: req.Email, Token: req.Token})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, joinResponse{Message: res.Message})
		return
	}

	d := res.Decision
	if !d.Allowed {
		retry := d.RetryAfterSeconds()
		if retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		}
		writeJSON(w, gatemw.StatusFor(d), joinResponse{
			Message:    res.Message,
			Reason:     string(d.Reason),
			RetryAfter: retry,
		})
		return
	}

	writeJSON(w, http.StatusOK, joinResponse{
		Success:       true,
		Message:       res.Message,
		AlreadyJoined: res.AlreadyJoined,
	})
}

type statsResponse struct {
	Success bool           `json:"success"`
	Data    waitlist.Stats `json:"data"`
	Message string         `json:"message,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.deps.Waitlist.Stats(r.Context())
	writeJSON(w, http.StatusOK, statsResponse{Success: true, Data: st, Message: st.Message})
}

type healthResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Stats     map[string]int64  `json:"stats"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.deps.Waitlist.Health(r.Context())
	resp := healthResponse{
		Success:   h.OK(),
		Message:   "All systems operational",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Services:  map[string]string{"database": h.Database, "redis": h.Redis},
		Stats:     map[string]int64{"totalEntries": h.TotalEntries},
	}
	status := http.StatusOK
	if !resp.Success {
		resp.Message = "System health check failed"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type webhookStatusResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Configured bool   `json:"configured"`
	Timestamp  string `json:"timestamp"`
}

func (s *Server) handleWebhookStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, webhookStatusResponse{
		Success:    true,
		Message:    "Discord webhook API is operational",
		Configured: s.deps.Discord != nil && s.deps.Discord.Configured(),
		Timestamp:  s.now().UTC().Format(time.RFC3339),
	})
}

type relayResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleWebhookRelay forwards a caller's payload after the generic endpoint budget (applied
// by middleware) and the webhook flow admit it. The body is forwarded as received.
func (s *Server) handleWebhookRelay(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var p discord.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(p.Content) == "" && len(p.Embeds) == 0 {
		writeError(w, http.StatusBadRequest, "Either 'content' or 'embeds' is required")
		return
	}
	texts := p.Texts()
	if len(texts) == 0 {
		writeError(w, http.StatusBadRequest, "Either 'content' or an embed description is required")
		return
	}

	ip := waitgate.ClientIPFromContext(r.Context())
	d := s.deps.Gate.EvaluateWebhook(r.Context(), ip, waitgate.WebhookMessage{
		Texts:  texts,
		Labels: p.Labels(),
	})
	if !d.Allowed {
		gatemw.WriteDecision(w, d)
		return
	}

	if s.deps.Discord == nil {
		writeError(w, http.StatusServiceUnavailable, "Discord webhook not configured")
		return
	}
	if _, err := s.deps.Discord.Send(r.Context(), p); err != nil {
		s.logger.Warn("webhook relay failed", zap.Error(err))
		switch {
		case errors.Is(err, discord.ErrNotConfigured):
			writeError(w, http.StatusServiceUnavailable, "Discord webhook not configured")
		case errors.Is(err, discord.ErrRateLimited):
			writeError(w, http.StatusBadGateway, "Discord rate limit exceeded")
		default:
			writeError(w, http.StatusBadGateway, "Failed to send Discord webhook")
		}
		return
	}
	writeJSON(w, http.StatusOK, relayResponse{Success: true, Message: "Webhook sent successfully"})
}

type adminMetricsResponse struct {
	Counters     map[string]uint64   `json:"counters"`
	Histograms   map[string][]uint64 `json:"histograms"`
	AuditDropped uint64              `json:"audit_dropped"`
}

func (s *Server) handleAdminMetrics(w http.ResponseWriter, _ *http.Request) {
	snap := s.deps.Gate.MetricsSnapshot()
	resp := adminMetricsResponse{
		Counters:     make(map[string]uint64, len(internaldefs.CounterDefs)),
		Histograms:   make(map[string][]uint64, len(internaldefs.HistogramDefs)),
		AuditDropped: s.deps.Gate.AuditDropped(),
	}
	for _, def := range internaldefs.CounterDefs {
		resp.Counters[def.Name] = snap.Counters[def.ID]
	}
	for _, def := range internaldefs.HistogramDefs {
		buckets := internaldefs.NormalizeBuckets(snap.Histograms[def.ID])
		resp.Histograms[def.Name] = buckets[:]
	}
	writeJSON(w, http.StatusOK, resp)
}

type policyView struct {
	Name      string `json:"name"`
	Window    string `json:"window"`
	Limit     int    `json:"limit"`
	Namespace string `json:"namespace"`
}

func (s *Server) handleAdminPolicies(w http.ResponseWriter, _ *http.Request) {
	policies := s.deps.Gate.Policies()
	out := make([]policyView, 0, len(policies))
	for _, p := range policies {
		out = append(out, policyView{Name: p.Name, Window: p.Window.String(), Limit: p.Limit, Namespace: p.Namespace})
	}
	writeJSON(w, http.StatusOK, map[string]any{"policies": out})
}
