package middleware

import (
	"context"

	"github.com/angelmondragon/workbooks-backend/internal/workbooks"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxUsername contextKey = "username"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func UsernameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUsername).(string); ok {
		return v
	}
	return ""
}

// OwnerFromContext returns the authenticated caller as a workbook owner.
// The display name falls back to the user id.
func OwnerFromContext(ctx context.Context) workbooks.Owner {
	owner := workbooks.Owner{ID: UserIDFromContext(ctx), DisplayName: UsernameFromContext(ctx)}
	if owner.DisplayName == "" {
		owner.DisplayName = owner.ID
	}
	return owner
}

// WithUser injects the caller identity into the context.
func WithUser(ctx context.Context, userID, username string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxUsername, username)
}
