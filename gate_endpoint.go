package waitgate

import (
	"context"

	"github.com/MrEthical07/waitgate/internal/flows"
)

// EvaluateEndpoint applies the generic per-endpoint budget for ip. Each endpoint name has its
// own counter per IP.
func (g *Gate) EvaluateEndpoint(ctx context.Context, ip, endpoint string) Decision {
	if g == nil || g.table == nil {
		return notReady()
	}

	ip = actorIP(ip)
	res := flows.RunEndpoint(ctx, ip, endpoint, g.limiterDeps(flowEndpoint))
	d := g.decide(flowEndpoint, res)

	if d.Allowed {
		g.metricInc(MetricEndpointAllowed)
		return d
	}
	if d.Reason.IsQuota() {
		g.metricInc(MetricEndpointRateLimited)
	}
	g.emitAudit(ctx, auditEventEndpointRejected, flowEndpoint, false, ip, d.Policy, nil, func() map[string]string {
		return map[string]string{
			"reason":   string(d.Reason),
			"endpoint": endpoint,
		}
	})
	return d
}
