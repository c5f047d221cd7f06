package learnauth

import "context"

type contextKey string

const (
	clientIPContextKey  contextKey = "learnauth.client_ip"
	userAgentContextKey contextKey = "learnauth.user_agent"
)

// WithClientIP attaches the caller's IP address to the context. Engine
// operations pick it up for audit events and per-IP throttling.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPContextKey, ip)
}

// WithUserAgent attaches the caller's user agent to the context for audit
// metadata.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	if ua == "" {
		return ctx
	}
	return context.WithValue(ctx, userAgentContextKey, ua)
}

func clientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentContextKey).(string)
	return ua
}
