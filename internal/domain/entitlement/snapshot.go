package entitlement

import (
	"context"
	"time"

	"github.com/docspace/backend/internal/domain/shared"
)

// TierSnapshot records one tier transition for audit. Snapshots are written
// by an event handler observing TierChangedEvent; they are never read back
// into resolution.
type TierSnapshot struct {
	shared.BaseEntity
	UserID       string    `gorm:"type:text;not null;index"`
	PreviousTier *string   `gorm:"type:text"`
	Tier         string    `gorm:"type:text;not null"`
	ResolvedAt   time.Time `gorm:"not null"`
}

// TableName returns the database table name
func (TierSnapshot) TableName() string {
	return "tier_snapshots"
}

// NewTierSnapshot creates a snapshot from a tier transition
func NewTierSnapshot(userID string, previous *TierID, current TierID, resolvedAt time.Time) *TierSnapshot {
	s := &TierSnapshot{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Tier:       string(current),
		ResolvedAt: resolvedAt,
	}
	if previous != nil {
		p := string(*previous)
		s.PreviousTier = &p
	}
	return s
}

// SnapshotRepository persists tier transition snapshots
type SnapshotRepository interface {
	// Save stores a snapshot
	Save(ctx context.Context, snapshot *TierSnapshot) error
	// ListByUser returns the most recent snapshots for a user, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]TierSnapshot, error)
}
