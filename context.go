package waitgate

import "context"

type clientIPContextKey struct{}
type requestIDContextKey struct{}

// UnknownIP is the actor used when no client address can be determined. All such requests
// share one limiter bucket.
const UnknownIP = "unknown"

// WithClientIP attaches the caller's IP address to ctx. Middleware sets it once per request so
// handlers and audit events agree on the actor.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the IP set by WithClientIP, or UnknownIP.
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return UnknownIP
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	if ip == "" {
		return UnknownIP
	}
	return ip
}

// WithRequestID attaches a request correlation ID used in audit metadata.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

func actorIP(ip string) string {
	if ip == "" {
		return UnknownIP
	}
	return ip
}
