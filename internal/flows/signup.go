package flows

import (
	"context"

	"github.com/MrEthical07/waitgate/internal/limiters"
	"github.com/MrEthical07/waitgate/internal/validate"
)

type SignupRequest struct {
	IP    string
	Email string
	// Token is the bot-verification token; ignored when VerifyHuman is nil.
	Token string
}

type SignupDeps struct {
	LimiterDeps

	ValidateEmail func(string) validate.Reason
	// VerifyHuman is optional. It runs after the limiter checks and before any consume so a
	// failed verification never spends quota.
	VerifyHuman func(ctx context.Context, token, ip string) error
}

// RunSignup evaluates a waitlist signup:
// validate → signup-by-ip.check → signup-by-email.check → verify → consume ip → consume email.
func RunSignup(ctx context.Context, req SignupRequest, deps SignupDeps) Result {
	if reason := validationReason(deps.ValidateEmail(req.Email)); reason != ReasonOK {
		return Result{Reason: reason}
	}

	if res, ok := deps.check(ctx, limiters.SignupByIP, req.IP, ReasonIPRateLimited); !ok {
		return res
	}
	if res, ok := deps.check(ctx, limiters.SignupByEmail, req.Email, ReasonEmailRateLimited); !ok {
		return res
	}

	if deps.VerifyHuman != nil {
		if err := deps.VerifyHuman(ctx, req.Token, req.IP); err != nil {
			return Result{Reason: ReasonBotCheckFailed, Err: err}
		}
	}

	deps.consume(ctx, limiters.SignupByIP, req.IP)
	deps.consume(ctx, limiters.SignupByEmail, req.Email)

	return Result{Reason: ReasonOK}
}
