package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	waitgate "github.com/MrEthical07/waitgate"
)

// EndpointEvaluator is the part of the Gate used by EndpointLimit.
type EndpointEvaluator interface {
	EvaluateEndpoint(ctx context.Context, ip, endpoint string) waitgate.Decision
}

// EndpointLimit applies the generic per-endpoint budget to every request. Rejected requests
// get 429 with Retry-After, or 503 when the counter store is unreachable.
func EndpointLimit(gate EndpointEvaluator, endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				next.ServeHTTP(w, r)
				return
			}
			ip := waitgate.ClientIPFromContext(r.Context())
			d := gate.EvaluateEndpoint(r.Context(), ip, endpoint)
			if !d.Allowed {
				WriteDecision(w, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StatusFor maps a rejected decision to an HTTP status.
func StatusFor(d waitgate.Decision) int {
	switch {
	case d.Allowed:
		return http.StatusOK
	case d.Reason.IsValidation():
		return http.StatusBadRequest
	case d.Reason.IsQuota():
		return http.StatusTooManyRequests
	case d.Reason == waitgate.ReasonBotCheckFailed:
		return http.StatusForbidden
	default:
		return http.StatusServiceUnavailable
	}
}

type rejection struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Reason     string `json:"reason"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// WriteDecision writes a JSON rejection for d, setting Retry-After on quota rejections.
func WriteDecision(w http.ResponseWriter, d waitgate.Decision) {
	retry := d.RetryAfterSeconds()
	if retry > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(d))
	_ = json.NewEncoder(w).Encode(rejection{
		Error:      d.Message(),
		Reason:     string(d.Reason),
		RetryAfter: retry,
	})
}
