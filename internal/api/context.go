package api

import (
	"context"

	"github.com/mepad/mepad-server/internal/identity"
)

type contextKey string

// userContextKey is the context key for the authenticated caller.
const userContextKey contextKey = "user"

// WithUser attaches the authenticated user to the context.
func WithUser(ctx context.Context, user *identity.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user, or nil for anonymous
// requests (optional-auth endpoints).
func UserFromContext(ctx context.Context) *identity.User {
	user, _ := ctx.Value(userContextKey).(*identity.User)
	return user
}
