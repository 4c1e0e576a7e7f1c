package waitgate

import (
	"context"
	"strconv"
	"time"

	"github.com/MrEthical07/waitgate/internal/flows"
)

// EvaluateWebhookSend admits or rejects one outbound notification with a single text body.
func (g *Gate) EvaluateWebhookSend(ctx context.Context, ip, content string) Decision {
	return g.EvaluateWebhookMessage(ctx, ip, []string{content})
}

// EvaluateWebhookMessage admits or rejects an outbound notification carrying several texts
// (message content and embed descriptions). Every text must pass validation and the content
// filter before the webhook limiters are consumed.
//
// Content counters are consumed per text as the filter admits it and are not rolled back if a
// later text is rejected.
func (g *Gate) EvaluateWebhookMessage(ctx context.Context, ip string, texts []string) Decision {
	return g.EvaluateWebhook(ctx, ip, WebhookMessage{Texts: texts})
}

// WebhookMessage is the inspectable text of an outbound notification. Texts are validated and
// counted by the content filter; Labels (titles, field names and values, footers) are only
// validated, so constant decorations never trip the duplicate-content caps.
type WebhookMessage struct {
	Texts  []string
	Labels []string
}

// EvaluateWebhook is EvaluateWebhookMessage with labels.
func (g *Gate) EvaluateWebhook(ctx context.Context, ip string, msg WebhookMessage) Decision {
	if g == nil || g.table == nil {
		return notReady()
	}
	start := time.Now()
	defer g.observeLatency(start)

	deps := flows.WebhookDeps{
		LimiterDeps:     g.limiterDeps(flowWebhook),
		ValidateContent: g.rules.Content,
		EvaluateSpam:    g.spam.Evaluate,
	}

	ip = actorIP(ip)
	res := flows.RunWebhook(ctx, flows.WebhookRequest{IP: ip, Texts: msg.Texts, Labels: msg.Labels}, deps)
	d := g.decide(flowWebhook, res)

	switch {
	case d.Allowed:
		g.metricInc(MetricWebhookAllowed)
	case d.Reason.IsValidation():
		g.metricInc(MetricWebhookInvalid)
	case d.Reason == ReasonContentSpamGlobal, d.Reason == ReasonContentSpamActor:
		g.metricInc(MetricWebhookSpamRejected)
	case d.Reason.IsQuota():
		g.metricInc(MetricWebhookRateLimited)
	}

	eventType := auditEventWebhookRejected
	if d.Allowed {
		eventType = auditEventWebhookAllowed
	}
	g.emitAudit(ctx, eventType, flowWebhook, d.Allowed, ip, d.Policy, nil, func() map[string]string {
		return map[string]string{
			"reason": string(d.Reason),
			"texts":  strconv.Itoa(len(msg.Texts)),
			"labels": strconv.Itoa(len(msg.Labels)),
		}
	})

	return d
}
