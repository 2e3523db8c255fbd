package auth

import (
	"context"

	"blogapp/internal/models"
)

// principalKey is unexported so no other package can forge a principal.
type principalKey struct{}

// WithPrincipal returns a context carrying user. A nil user leaves the
// context anonymous.
func WithPrincipal(ctx context.Context, user *models.User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, principalKey{}, user)
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(principalKey{}).(*models.User)
	return user, ok && user != nil
}
