package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	waitgate "github.com/MrEthical07/waitgate"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ResolveClientIP returns the caller address in order of trust: cf-connecting-ip, the first
// x-forwarded-for hop, remote-addr, then the connection's RemoteAddr. Values that do not parse
// as an IP are skipped. Requests with no usable address resolve to [waitgate.UnknownIP].
func ResolveClientIP(r *http.Request) string {
	if ip, ok := parseIP(r.Header.Get("Cf-Connecting-Ip")); ok {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, ok := parseIP(first); ok {
			return ip
		}
	}
	if ip, ok := parseIP(r.Header.Get("Remote-Addr")); ok {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := parseIP(host); ok {
		return ip
	}
	return waitgate.UnknownIP
}

// IsCloudflareRequest reports whether the request carries Cloudflare edge headers.
func IsCloudflareRequest(r *http.Request) bool {
	return r.Header.Get("Cf-Connecting-Ip") != "" ||
		r.Header.Get("Cf-Ray") != "" ||
		r.Header.Get("Cf-Visitor") != ""
}

func parseIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}

// ClientIP stores the resolved caller address, and chi's request ID when present, in the
// request context for handlers and gate audit events.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := waitgate.WithClientIP(r.Context(), ResolveClientIP(r))
		if id := chimw.GetReqID(ctx); id != "" {
			ctx = waitgate.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
