package utils

import "context"

type ctxKey string

const (
	adminKey           ctxKey = "admin_user"
	internalRequestKey ctxKey = "internal_request"
	clientIPKey        ctxKey = "client_ip"
)

// WithAdmin marks the request as authenticated by an admin token.
func WithAdmin(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, adminKey, username)
}

// AdminFromContext returns the admin username, if any.
func AdminFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(adminKey).(string)
	return u, ok && u != ""
}

func WithInternalRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, internalRequestKey, true)
}

func IsInternalRequest(ctx context.Context) bool {
	v, _ := ctx.Value(internalRequestKey).(bool)
	return v
}

// WithClientIP records the resolved client address for ClientIP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}
