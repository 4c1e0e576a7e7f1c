package flows

import (
	"context"

	"github.com/MrEthical07/waitgate/internal/limiters"
	"github.com/MrEthical07/waitgate/internal/spam"
	"github.com/MrEthical07/waitgate/internal/validate"
)

type WebhookRequest struct {
	IP string
	// Texts holds the message bodies (content, embed descriptions). They are validated and
	// counted by the content filter.
	Texts []string
	// Labels holds short decorations (titles, field names and values, footers, author names).
	// They are validated but never fingerprinted.
	Labels []string
}

type WebhookDeps struct {
	LimiterDeps

	ValidateContent func(string) validate.Reason
	EvaluateSpam    func(ctx context.Context, text, actor string) (spam.Verdict, error)
}

// RunWebhook evaluates an outbound notification:
// webhook-by-ip.check → webhook-global.check → validate texts and labels → spam.Evaluate texts →
// consume webhook-by-ip → consume webhook-global.
//
// Spam counters are consumed inside Evaluate and are not rolled back if a later text is
// rejected or the send fails.
func RunWebhook(ctx context.Context, req WebhookRequest, deps WebhookDeps) Result {
	if res, ok := deps.check(ctx, limiters.WebhookByIP, req.IP, ReasonIPRateLimited); !ok {
		return res
	}
	if res, ok := deps.check(ctx, limiters.WebhookGlobal, req.IP, ReasonGlobalRateLimited); !ok {
		return res
	}

	if len(req.Texts) == 0 {
		return Result{Reason: ReasonInvalidFormat}
	}
	for _, texts := range [][]string{req.Texts, req.Labels} {
		for _, text := range texts {
			if reason := validationReason(deps.ValidateContent(text)); reason != ReasonOK {
				return Result{Reason: reason}
			}
		}
	}

	for _, text := range req.Texts {
		verdict, err := deps.EvaluateSpam(ctx, text, req.IP)
		if err != nil {
			return Result{Reason: ReasonStoreUnavailable, Err: err}
		}
		switch verdict.Reason {
		case spam.ReasonGlobal:
			return Result{Reason: ReasonContentSpamGlobal, ResetAt: verdict.ResetAt}
		case spam.ReasonActor:
			return Result{Reason: ReasonContentSpamActor, ResetAt: verdict.ResetAt}
		}
	}

	deps.consume(ctx, limiters.WebhookByIP, req.IP)
	deps.consume(ctx, limiters.WebhookGlobal, req.IP)

	return Result{Reason: ReasonOK}
}
