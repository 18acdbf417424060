package entitlement

import (
	"time"

	"github.com/docspace/backend/internal/domain/shared"
)

// Event types for entitlement resolution
const (
	EventTypeTierChanged = "entitlement.tier_changed"
)

// TierChangedEvent is published whenever a user's resolved tier transitions.
// PreviousTier is nil on the first resolution after a bind.
type TierChangedEvent struct {
	shared.BaseDomainEvent
	UserID       string    `json:"user_id"`
	PreviousTier *TierID   `json:"previous_tier,omitempty"`
	CurrentTier  TierID    `json:"current_tier"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// NewTierChangedEvent creates a tier change event
func NewTierChangedEvent(userID string, previous *TierID, current TierID, resolvedAt time.Time) *TierChangedEvent {
	return &TierChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTierChanged, userID),
		UserID:          userID,
		PreviousTier:    previous,
		CurrentTier:     current,
		ResolvedAt:      resolvedAt,
	}
}
