package internaldefs

import (
	waitgate "github.com/MrEthical07/waitgate"
)

// CounterDef names one gate counter for every exporter. Decision counters also carry the
// flow and outcome they count; operational counters leave both empty.
type CounterDef struct {
	ID      waitgate.MetricID
	Name    string
	Help    string
	Flow    string
	Outcome string
}

// Outcomes shared by the decision counters.
const (
	OutcomeAllowed     = "allowed"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeBotRejected = "bot_rejected"
	OutcomeSpam        = "spam"
)

// HistogramDef names one gate histogram for every exporter.
type HistogramDef struct {
	ID   waitgate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: waitgate.MetricSignupAllowed, Name: "waitgate_signup_allowed_total", Help: "Signups admitted by the gate.", Flow: "signup", Outcome: OutcomeAllowed},
	{ID: waitgate.MetricSignupInvalid, Name: "waitgate_signup_invalid_total", Help: "Signups rejected by validation.", Flow: "signup", Outcome: OutcomeInvalid},
	{ID: waitgate.MetricSignupRateLimited, Name: "waitgate_signup_rate_limited_total", Help: "Signups rejected by an IP or email limiter.", Flow: "signup", Outcome: OutcomeRateLimited},
	{ID: waitgate.MetricSignupBotRejected, Name: "waitgate_signup_bot_rejected_total", Help: "Signups rejected by bot verification.", Flow: "signup", Outcome: OutcomeBotRejected},
	{ID: waitgate.MetricWebhookAllowed, Name: "waitgate_webhook_allowed_total", Help: "Outbound notifications admitted by the gate.", Flow: "webhook", Outcome: OutcomeAllowed},
	{ID: waitgate.MetricWebhookInvalid, Name: "waitgate_webhook_invalid_total", Help: "Outbound notifications rejected by validation.", Flow: "webhook", Outcome: OutcomeInvalid},
	{ID: waitgate.MetricWebhookRateLimited, Name: "waitgate_webhook_rate_limited_total", Help: "Outbound notifications rejected by a webhook limiter.", Flow: "webhook", Outcome: OutcomeRateLimited},
	{ID: waitgate.MetricWebhookSpamRejected, Name: "waitgate_webhook_spam_rejected_total", Help: "Outbound notifications rejected as repeated content.", Flow: "webhook", Outcome: OutcomeSpam},
	{ID: waitgate.MetricEndpointAllowed, Name: "waitgate_endpoint_allowed_total", Help: "Endpoint calls admitted by the generic limiter.", Flow: "endpoint", Outcome: OutcomeAllowed},
	{ID: waitgate.MetricEndpointRateLimited, Name: "waitgate_endpoint_rate_limited_total", Help: "Endpoint calls rejected by the generic limiter.", Flow: "endpoint", Outcome: OutcomeRateLimited},
	{ID: waitgate.MetricStoreUnavailable, Name: "waitgate_store_unavailable_total", Help: "Checks that failed closed because the counter store was unreachable."},
	{ID: waitgate.MetricConsumeFailed, Name: "waitgate_consume_failed_total", Help: "Counter increments lost after admission."},
}

var HistogramDefs = []HistogramDef{
	{ID: waitgate.MetricEvaluateLatency, Name: "waitgate_evaluate_latency_seconds", Help: "Gate evaluation latency histogram."},
}

// AuditDroppedName is the counter of audit events lost to dispatcher backpressure.
const AuditDroppedName = "waitgate_audit_dropped_total"

// HistogramUpperBounds are the finite bucket bounds in seconds; the last bucket is +Inf.
var HistogramUpperBounds = []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
