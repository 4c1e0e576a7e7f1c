package flows

import (
	"context"

	"github.com/MrEthical07/waitgate/internal/limiters"
)

// RunEndpoint applies the generic per-endpoint budget: check, then consume on success.
func RunEndpoint(ctx context.Context, ip, endpoint string, deps LimiterDeps) Result {
	actor := limiters.EndpointActor(endpoint, ip)
	if res, ok := deps.check(ctx, limiters.GenericEndpoint, actor, ReasonEndpointRateLimited); !ok {
		return res
	}
	deps.consume(ctx, limiters.GenericEndpoint, actor)
	return Result{Reason: ReasonOK}
}
