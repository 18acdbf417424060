// Package identity defines the port to the identity provider that supplies
// a stable anonymous or authenticated user identifier.
package identity

import (
	"context"

	"github.com/docspace/backend/internal/domain/shared"
)

// ErrNoIdentity indicates no user identity is available in the current context
var ErrNoIdentity = shared.NewDomainError("NO_IDENTITY", "No user identity available")

// Provider supplies the current user's stable identifier
type Provider interface {
	// CurrentUserID returns the user id for the current context, or
	// ErrNoIdentity when none is available
	CurrentUserID(ctx context.Context) (string, error)
}
