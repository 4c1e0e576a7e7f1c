package waitgate

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/waitgate/internal/flows"
	"go.uber.org/zap"
)

// SignupRequest is one waitlist signup attempt.
type SignupRequest struct {
	IP    string
	Email string
	// Token is the bot-verification token. It is only read when a HumanVerifier is configured.
	Token string
}

// EvaluateSignup admits or rejects a signup from ip for email. Quota is consumed only when
// every check passes.
func (g *Gate) EvaluateSignup(ctx context.Context, ip, email string) Decision {
	return g.EvaluateSignupRequest(ctx, SignupRequest{IP: ip, Email: email})
}

// EvaluateSignupRequest is EvaluateSignup with an optional bot-verification token.
func (g *Gate) EvaluateSignupRequest(ctx context.Context, req SignupRequest) Decision {
	if g == nil || g.table == nil {
		return notReady()
	}
	start := time.Now()
	defer g.observeLatency(start)

	deps := flows.SignupDeps{
		LimiterDeps:   g.limiterDeps(flowSignup),
		ValidateEmail: g.rules.Email,
	}
	if g.verifier != nil {
		deps.VerifyHuman = g.verifier.Verify
	}

	ip := actorIP(req.IP)
	res := flows.RunSignup(ctx, flows.SignupRequest{IP: ip, Email: req.Email, Token: req.Token}, deps)
	d := g.decide(flowSignup, res)

	switch {
	case d.Allowed:
		g.metricInc(MetricSignupAllowed)
	case d.Reason.IsValidation():
		g.metricInc(MetricSignupInvalid)
	case d.Reason.IsQuota():
		g.metricInc(MetricSignupRateLimited)
	case d.Reason == ReasonBotCheckFailed:
		g.metricInc(MetricSignupBotRejected)
		g.logger.Info("signup bot verification failed", zap.String("ip", ip), zap.Error(res.Err))
	}

	eventType := auditEventSignupRejected
	if d.Allowed {
		eventType = auditEventSignupAllowed
	}
	g.emitAudit(ctx, eventType, flowSignup, d.Allowed, ip, d.Policy, nil, func() map[string]string {
		return map[string]string{
			"reason":       string(d.Reason),
			"email_domain": emailDomain(req.Email),
		}
	})

	return d
}

func emailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
