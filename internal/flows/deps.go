package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/waitgate/internal/limiters"
	"github.com/MrEthical07/waitgate/internal/rate"
	"github.com/MrEthical07/waitgate/internal/validate"
)

// Reason mirrors the public reason codes without importing the root package.
type Reason string

const (
	ReasonOK                  Reason = "OK"
	ReasonInvalidFormat       Reason = "INVALID_FORMAT"
	ReasonSuspiciousPattern   Reason = "SUSPICIOUS_PATTERN"
	ReasonTooLong             Reason = "TOO_LONG"
	ReasonIPRateLimited       Reason = "IP_RATE_LIMITED"
	ReasonEmailRateLimited    Reason = "EMAIL_RATE_LIMITED"
	ReasonGlobalRateLimited   Reason = "GLOBAL_RATE_LIMITED"
	ReasonEndpointRateLimited Reason = "ENDPOINT_RATE_LIMITED"
	ReasonContentSpamGlobal   Reason = "CONTENT_SPAM_GLOBAL"
	ReasonContentSpamActor    Reason = "CONTENT_SPAM_PER_ACTOR"
	ReasonBotCheckFailed      Reason = "BOT_CHECK_FAILED"
	ReasonStoreUnavailable    Reason = "STORE_UNAVAILABLE"
)

// Result is the outcome of one flow run.
type Result struct {
	Reason  Reason
	ResetAt time.Time
	// Policy names the limiter that rejected, when a limiter did.
	Policy limiters.Name
	// Err carries the infrastructure error behind STORE_UNAVAILABLE or BOT_CHECK_FAILED.
	Err error
}

// Allowed reports whether the flow admitted the request.
func (r Result) Allowed() bool {
	return r.Reason == ReasonOK
}

// LimiterDeps is the policy-table surface shared by every flow.
type LimiterDeps struct {
	Check          func(context.Context, limiters.Name, string) (rate.Status, error)
	Consume        func(context.Context, limiters.Name, string) error
	OnConsumeError func(context.Context, limiters.Name, error)
}

func (d LimiterDeps) consume(ctx context.Context, name limiters.Name, actor string) {
	if err := d.Consume(ctx, name, actor); err != nil && d.OnConsumeError != nil {
		d.OnConsumeError(ctx, name, err)
	}
}

// check runs one policy check. ok is false when the request must stop here.
func (d LimiterDeps) check(ctx context.Context, name limiters.Name, actor string, limited Reason) (Result, bool) {
	st, err := d.Check(ctx, name, actor)
	if err != nil {
		return Result{Reason: ReasonStoreUnavailable, Policy: name, Err: err}, false
	}
	if !st.Allowed {
		return Result{Reason: limited, ResetAt: st.ResetAt, Policy: name}, false
	}
	return Result{}, true
}

func validationReason(r validate.Reason) Reason {
	switch r {
	case validate.OK:
		return ReasonOK
	case validate.TooLong:
		return ReasonTooLong
	case validate.SuspiciousPattern:
		return ReasonSuspiciousPattern
	default:
		return ReasonInvalidFormat
	}
}
