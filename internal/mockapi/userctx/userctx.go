package userctx

import (
	"context"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// Create a new context with the authenticated user id
func New(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Extract the user id from the context
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
