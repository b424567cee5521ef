package metadata

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// Actor describes who (or what) triggered a request. It is attached to every
// audit event so consent and deletion records carry actor metadata.
type Actor struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
	Bot       bool   `json:"bot,omitempty"`
}

type contextKeyActor struct{}

// ClientMetadata extracts the client IP and a parsed User-Agent from the
// request and adds them to the context for audit logging downstream.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromRequest(r)
		ctx := context.WithValue(r.Context(), contextKeyActor{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorFromRequest builds actor metadata from request headers.
func ActorFromRequest(r *http.Request) Actor {
	rawUA := r.Header.Get("User-Agent")
	actor := Actor{
		IP:        ClientIPFromRequest(r),
		UserAgent: rawUA,
	}
	if rawUA != "" {
		ua := useragent.New(rawUA)
		name, version := ua.Browser()
		actor.Browser = strings.TrimSpace(name + " " + version)
		actor.OS = ua.OS()
		actor.Bot = ua.Bot()
	}
	return actor
}

// GetActor retrieves actor metadata from the context. Returns a zero Actor
// when the middleware did not run (background jobs, tests).
func GetActor(ctx context.Context) Actor {
	if a, ok := ctx.Value(contextKeyActor{}).(Actor); ok {
		return a
	}
	return Actor{}
}

// WithActor injects actor metadata into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKeyActor{}, actor)
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...);
	// the first one is the original client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// X-Real-IP is set by nginx and similar proxies.
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" ("[::1]:port" for IPv6), so strip the port.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return ""
}
