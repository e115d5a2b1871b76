package middleware

import "context"

type contextKey string

const ctxClientUserID contextKey = "client_user_id"

// ClientUserIDFromContext returns the end user the caller token was minted for.
func ClientUserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxClientUserID).(string); ok {
		return v
	}
	return ""
}

// WithClientUserID injects the end-user identifier into the context.
func WithClientUserID(ctx context.Context, clientUserID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClientUserID, clientUserID)
}
