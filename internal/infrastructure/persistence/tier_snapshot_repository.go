package persistence

import (
	"context"

	"github.com/docspace/backend/internal/domain/entitlement"
	"gorm.io/gorm"
)

// GormTierSnapshotRepository implements entitlement.SnapshotRepository using GORM
type GormTierSnapshotRepository struct {
	db *gorm.DB
}

// NewGormTierSnapshotRepository creates a new GormTierSnapshotRepository
func NewGormTierSnapshotRepository(db *gorm.DB) *GormTierSnapshotRepository {
	return &GormTierSnapshotRepository{db: db}
}

// Save stores a snapshot
func (r *GormTierSnapshotRepository) Save(ctx context.Context, snapshot *entitlement.TierSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// ListByUser returns the most recent snapshots for a user, newest first
func (r *GormTierSnapshotRepository) ListByUser(ctx context.Context, userID string, limit int) ([]entitlement.TierSnapshot, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var snapshots []entitlement.TierSnapshot
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("resolved_at DESC").
		Limit(limit).
		Find(&snapshots).Error
	return snapshots, err
}
