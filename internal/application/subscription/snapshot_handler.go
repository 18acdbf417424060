package subscription

import (
	"context"

	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/docspace/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SnapshotHandler persists an audit snapshot for every tier transition
type SnapshotHandler struct {
	snapshots entitlement.SnapshotRepository
	logger    *zap.Logger
}

// NewSnapshotHandler creates a snapshot handler
func NewSnapshotHandler(snapshots entitlement.SnapshotRepository, logger *zap.Logger) *SnapshotHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotHandler{snapshots: snapshots, logger: logger}
}

// EventTypes returns the handled event types
func (h *SnapshotHandler) EventTypes() []string {
	return []string{entitlement.EventTypeTierChanged}
}

// Handle persists a snapshot for a tier change event
func (h *SnapshotHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*entitlement.TierChangedEvent)
	if !ok {
		return nil
	}

	snapshot := entitlement.NewTierSnapshot(changed.UserID, changed.PreviousTier, changed.CurrentTier, changed.ResolvedAt)
	if err := h.snapshots.Save(ctx, snapshot); err != nil {
		h.logger.Error("failed to persist tier snapshot",
			zap.String("user_id", changed.UserID),
			zap.Error(err))
		return err
	}

	h.logger.Debug("tier snapshot persisted",
		zap.String("user_id", changed.UserID),
		zap.String("tier", string(changed.CurrentTier)))
	return nil
}
