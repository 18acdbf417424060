package auth

import (
	"context"

	"github.com/docspace/backend/internal/domain/identity"
)

type contextKey string

const userIDKey contextKey = "auth_user_id"

// WithUserID attaches an authenticated user id to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// ContextIdentityProvider implements identity.Provider by reading the user id
// the auth middleware placed in the request context.
type ContextIdentityProvider struct{}

// NewContextIdentityProvider creates a context-backed identity provider
func NewContextIdentityProvider() *ContextIdentityProvider {
	return &ContextIdentityProvider{}
}

// CurrentUserID returns the authenticated user id from the context
func (p *ContextIdentityProvider) CurrentUserID(ctx context.Context) (string, error) {
	if userID, ok := ctx.Value(userIDKey).(string); ok && userID != "" {
		return userID, nil
	}
	return "", identity.ErrNoIdentity
}

// Ensure ContextIdentityProvider implements identity.Provider
var _ identity.Provider = (*ContextIdentityProvider)(nil)
