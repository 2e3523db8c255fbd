package auth

import (
	"context"

	"blogapp/internal/models"
)

func RequireAuthenticated(ctx context.Context) (*models.User, error) {
	user, ok := PrincipalFrom(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// RequireAdmin checks authentication before privilege: an anonymous caller
// gets ErrUnauthorized, never ErrForbidden.
func RequireAdmin(ctx context.Context) (*models.User, error) {
	user, err := RequireAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	return user, nil
}
