package entitlement

import (
	"context"

	"github.com/docspace/backend/internal/domain/shared"
)

// Provider-level failures. All are returned to the immediate caller of the
// triggering operation and never corrupt a cached ResolvedState.
var (
	// ErrProviderUnavailable indicates a network or backend failure; retryable.
	ErrProviderUnavailable = shared.NewDomainError("PROVIDER_UNAVAILABLE", "Billing provider is unavailable")
	// ErrInvalidUser indicates a missing or malformed user id; fatal to bind.
	ErrInvalidUser = shared.NewDomainError("INVALID_USER", "User identifier is missing or malformed")
	// ErrUserCancelled is the normal negative outcome of a purchase, not a failure.
	ErrUserCancelled = shared.NewDomainError("USER_CANCELLED", "Purchase was cancelled by the user")
	// ErrPurchaseFailed indicates the purchase could not be completed.
	ErrPurchaseFailed = shared.NewDomainError("PURCHASE_FAILED", "Purchase could not be completed")
)

// Provider is the billing backend consumed by the subscription session.
// One provider instance serves one bound user. All operations are
// asynchronous I/O and honor context cancellation; they may be abandoned
// only by session teardown, not individually.
type Provider interface {
	// Bind associates the provider with a user and returns the initial
	// customer record. Fails with ErrInvalidUser or ErrProviderUnavailable.
	Bind(ctx context.Context, userID string) (CustomerRecord, error)

	// FetchRecord returns a fresh customer record for the bound user
	FetchRecord(ctx context.Context) (CustomerRecord, error)

	// Purchase executes a purchase of the referenced package and returns the
	// updated record. Fails with ErrUserCancelled or ErrPurchaseFailed.
	Purchase(ctx context.Context, ref PackageRef) (CustomerRecord, error)

	// Restore re-links previous purchases and returns the updated record
	Restore(ctx context.Context) (CustomerRecord, error)

	// Updates is the push channel emitting records on out-of-band changes
	// (renewal, expiry, cross-device purchase). Closed by Close.
	Updates() <-chan CustomerRecord

	// Close releases the binding and the push stream
	Close() error
}
