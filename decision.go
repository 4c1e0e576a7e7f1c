package waitgate

import (
	"fmt"
	"math"
	"time"
)

// ReasonCode classifies a gate decision.
type ReasonCode string

const (
	ReasonOK                  ReasonCode = "OK"
	ReasonInvalidFormat       ReasonCode = "INVALID_FORMAT"
	ReasonSuspiciousPattern   ReasonCode = "SUSPICIOUS_PATTERN"
	ReasonTooLong             ReasonCode = "TOO_LONG"
	ReasonIPRateLimited       ReasonCode = "IP_RATE_LIMITED"
	ReasonEmailRateLimited    ReasonCode = "EMAIL_RATE_LIMITED"
	ReasonGlobalRateLimited   ReasonCode = "GLOBAL_RATE_LIMITED"
	ReasonEndpointRateLimited ReasonCode = "ENDPOINT_RATE_LIMITED"
	ReasonContentSpamGlobal   ReasonCode = "CONTENT_SPAM_GLOBAL"
	ReasonContentSpamActor    ReasonCode = "CONTENT_SPAM_PER_ACTOR"
	ReasonBotCheckFailed      ReasonCode = "BOT_CHECK_FAILED"
	ReasonStoreUnavailable    ReasonCode = "STORE_UNAVAILABLE"
)

// IsValidation reports whether the reason is a static input failure.
func (r ReasonCode) IsValidation() bool {
	switch r {
	case ReasonInvalidFormat, ReasonSuspiciousPattern, ReasonTooLong:
		return true
	}
	return false
}

// IsQuota reports whether the reason is a store-backed quota rejection that carries a retry time.
func (r ReasonCode) IsQuota() bool {
	switch r {
	case ReasonIPRateLimited, ReasonEmailRateLimited, ReasonGlobalRateLimited,
		ReasonEndpointRateLimited, ReasonContentSpamGlobal, ReasonContentSpamActor:
		return true
	}
	return false
}

// Decision is the outcome of one gate evaluation.
//
// A Decision never carries store error detail. RetryAfter and ResetAt are set for quota
// rejections only.
type Decision struct {
	Allowed    bool
	Reason     ReasonCode
	RetryAfter time.Duration
	ResetAt    time.Time
	// Policy names the limiter policy that rejected, if any.
	Policy string
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds. Quota rejections always
// report at least one second.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed || !d.Reason.IsQuota() {
		return 0
	}
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Err maps the decision to a sentinel error usable with errors.Is. Allowed decisions return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonInvalidFormat, ReasonTooLong:
		return ErrInvalidInput
	case ReasonSuspiciousPattern:
		return ErrSuspiciousInput
	case ReasonIPRateLimited, ReasonEmailRateLimited, ReasonGlobalRateLimited, ReasonEndpointRateLimited:
		return ErrRateLimited
	case ReasonContentSpamGlobal, ReasonContentSpamActor:
		return ErrContentSpam
	case ReasonBotCheckFailed:
		return ErrBotCheckFailed
	default:
		return ErrStoreUnavailable
	}
}

// Message returns an actor-facing explanation of the decision.
func (d Decision) Message() string {
	switch d.Reason {
	case ReasonOK:
		return "ok"
	case ReasonInvalidFormat:
		return "Please provide a valid value"
	case ReasonSuspiciousPattern:
		return "Input contains suspicious patterns"
	case ReasonTooLong:
		return "Input is too long"
	case ReasonIPRateLimited:
		return "Too many requests from your location. Please try again in " + d.minutes() + "."
	case ReasonEmailRateLimited:
		return "Too many attempts with this email. Please try again in " + d.minutes() + "."
	case ReasonGlobalRateLimited:
		return "System is experiencing high load. Please try again in " + d.minutes() + "."
	case ReasonEndpointRateLimited:
		return "Too many API requests. Please try again in " + d.minutes() + "."
	case ReasonContentSpamGlobal:
		return "This content has been submitted too many times recently"
	case ReasonContentSpamActor:
		return "You have already submitted this content recently"
	case ReasonBotCheckFailed:
		return "Verification failed. Please try again."
	default:
		return "Service temporarily unavailable. Please try again later."
	}
}

func (d Decision) minutes() string {
	m := (d.RetryAfterSeconds() + 59) / 60
	if m < 1 {
		m = 1
	}
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

func allow() Decision {
	return Decision{Allowed: true, Reason: ReasonOK}
}

func deny(reason ReasonCode, resetAt, now time.Time, policy string) Decision {
	d := Decision{Reason: reason, Policy: policy}
	if reason.IsQuota() && !resetAt.IsZero() {
		d.ResetAt = resetAt
		if wait := resetAt.Sub(now); wait > 0 {
			d.RetryAfter = wait
		}
	}
	return d
}
