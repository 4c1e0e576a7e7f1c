package waitgate

import (
	"context"
	"time"

	"github.com/MrEthical07/waitgate/internal/audit"
	"github.com/MrEthical07/waitgate/internal/flows"
	"github.com/MrEthical07/waitgate/internal/limiters"
	"github.com/MrEthical07/waitgate/internal/spam"
	"github.com/MrEthical07/waitgate/internal/validate"
	"go.uber.org/zap"
)

// Gate evaluates signups, outbound notifications and generic endpoint calls against the
// configured limiter policies and content filter.
//
// Gate holds no mutable admission state and is safe for concurrent use.
type Gate struct {
	config   Config
	table    *limiters.Table
	spam     *spam.Filter
	rules    *validate.Rules
	verifier HumanVerifier
	audit    *audit.Dispatcher
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// Close flushes pending audit events. Evaluations after Close still work but emit no events.
func (g *Gate) Close() {
	if g == nil {
		return
	}
	g.audit.Close()
}

func (g *Gate) AuditDropped() uint64 {
	if g == nil {
		return 0
	}
	return g.audit.Dropped()
}

func (g *Gate) MetricsSnapshot() MetricsSnapshot {
	if g == nil || g.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return g.metrics.Snapshot()
}

// PolicyInfo describes one configured counter family.
type PolicyInfo struct {
	Name      string        `json:"name"`
	Window    time.Duration `json:"window"`
	Limit     int           `json:"limit"`
	Namespace string        `json:"namespace"`
}

// Policies lists every limiter policy followed by the two content counters.
func (g *Gate) Policies() []PolicyInfo {
	if g == nil {
		return nil
	}
	out := make([]PolicyInfo, 0, len(limiters.Names())+2)
	for _, name := range limiters.Names() {
		p, _ := g.table.Policy(name)
		ns, _ := g.table.Key(name, "")
		out = append(out, PolicyInfo{Name: string(name), Window: p.Window, Limit: p.Limit, Namespace: ns})
	}
	prefixes := g.spam.Prefixes()
	out = append(out,
		PolicyInfo{Name: "content-global", Window: g.config.Spam.Window, Limit: g.config.Spam.GlobalLimit, Namespace: prefixes[0]},
		PolicyInfo{Name: "content-per-actor", Window: g.config.Spam.Window, Limit: g.config.Spam.ActorLimit, Namespace: prefixes[1]},
	)
	return out
}

// Config returns a copy of the configuration the Gate was built with.
func (g *Gate) Config() Config {
	if g == nil {
		return Config{}
	}
	return cloneConfig(g.config)
}

func (g *Gate) metricInc(id MetricID) {
	if g == nil || g.metrics == nil {
		return
	}
	g.metrics.Inc(id)
}

func (g *Gate) observeLatency(start time.Time) {
	if g.metrics.LatencyEnabled() {
		g.metrics.Observe(MetricEvaluateLatency, time.Since(start))
	}
}

func (g *Gate) limiterDeps(flow string) flows.LimiterDeps {
	return flows.LimiterDeps{
		Check:   g.table.Check,
		Consume: g.table.Consume,
		OnConsumeError: func(ctx context.Context, name limiters.Name, err error) {
			g.metricInc(MetricConsumeFailed)
			g.logger.Warn("limiter consume failed",
				zap.String("flow", flow),
				zap.String("policy", string(name)),
				zap.Error(err),
			)
			g.emitAudit(ctx, auditEventConsumeFailed, flow, false, "", string(name), err, nil)
		},
	}
}

// decide converts a flow result into a public Decision and records the store failure, if any.
func (g *Gate) decide(flow string, res flows.Result) Decision {
	if res.Allowed() {
		return allow()
	}
	if res.Reason == flows.ReasonStoreUnavailable {
		g.metricInc(MetricStoreUnavailable)
		g.logger.Error("gate check failed closed",
			zap.String("flow", flow),
			zap.String("policy", string(res.Policy)),
			zap.Error(res.Err),
		)
	}
	return deny(ReasonCode(res.Reason), res.ResetAt, g.now(), string(res.Policy))
}

func notReady() Decision {
	return Decision{Reason: ReasonStoreUnavailable}
}
