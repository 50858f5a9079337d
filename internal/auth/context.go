package auth

import (
	"context"

	"github.com/numberadder/numberadder/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const principalContextKey contextKey = "principal"

// ContextWithPrincipal adds the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, p *model.AuthContext) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the principal from the context.
// Returns nil if not present.
func PrincipalFromContext(ctx context.Context) *model.AuthContext {
	p, ok := ctx.Value(principalContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return p
}

// UserIDFromContext returns the authenticated user id and whether one is present.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	p := PrincipalFromContext(ctx)
	if p == nil {
		return 0, false
	}
	return p.UserID, true
}
