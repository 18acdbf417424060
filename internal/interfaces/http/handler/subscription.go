package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/docspace/backend/internal/application/subscription"
	"github.com/docspace/backend/internal/domain/document"
	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/docspace/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SubscriptionHandler exposes the subscription session over HTTP
type SubscriptionHandler struct {
	BaseHandler
	sessions  *subscription.Manager
	snapshots entitlement.SnapshotRepository
	counter   document.Counter
	logger    *zap.Logger
	heartbeat time.Duration
}

// SubscriptionHandlerConfig contains the handler's collaborators.
// Snapshots and Counter are optional.
type SubscriptionHandlerConfig struct {
	Sessions  *subscription.Manager
	Snapshots entitlement.SnapshotRepository
	Counter   document.Counter
	Logger    *zap.Logger
}

// NewSubscriptionHandler creates a subscription handler
func NewSubscriptionHandler(cfg SubscriptionHandlerConfig) *SubscriptionHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionHandler{
		sessions:  cfg.Sessions,
		snapshots: cfg.Snapshots,
		counter:   cfg.Counter,
		logger:    logger,
		heartbeat: 30 * time.Second,
	}
}

// RegisterRoutes registers the subscription routes
func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/subscription")
	group.GET("/state", h.GetState)
	group.GET("/quota", h.GetQuota)
	group.GET("/packages", h.ListPackages)
	group.GET("/history", h.TierHistory)
	group.GET("/events", h.Stream)
	group.POST("/purchases", h.Purchase)
	group.POST("/restore", h.Restore)
	group.DELETE("/session", h.TeardownSession)
}

// StateResponse is the resolution snapshot returned to clients
type StateResponse struct {
	Status    string   `json:"status"`
	Tier      string   `json:"tier,omitempty"`
	Limit     *int64   `json:"limit,omitempty"`
	Remaining *int64   `json:"remaining,omitempty"`
	Features  []string `json:"features,omitempty"`
}

func toStateResponse(state subscription.State) StateResponse {
	resp := StateResponse{
		Status:    string(state.Status),
		Limit:     state.Limit,
		Remaining: state.Remaining,
	}
	if state.Tier != nil {
		resp.Tier = string(state.Tier.ID)
		resp.Features = state.Tier.Features
	}
	return resp
}

// GetState returns the current resolution snapshot. Before the first
// successful resolution the status is unresolved rather than a guessed tier.
func (h *SubscriptionHandler) GetState(c *gin.Context) {
	session, err := h.sessions.SessionFor(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toStateResponse(session.GetState(c.Request.Context())))
}

// QuotaResponse reports document quota usage. Limit and Remaining are -1 for
// unlimited tiers.
type QuotaResponse struct {
	Tier      string `json:"tier"`
	Limit     int64  `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	Allowed   bool   `json:"allowed"`
}

// GetQuota returns the live quota decision for the authenticated user
func (h *SubscriptionHandler) GetQuota(c *gin.Context) {
	userID := middleware.GetUserID(c)
	session, err := h.sessions.SessionFor(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	count, err := h.counter.CountByOwner(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	decision, err := session.CheckCreateAllowed(count)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	state := session.GetState(c.Request.Context())
	tier := ""
	if state.Tier != nil {
		tier = string(state.Tier.ID)
	}
	h.Success(c, QuotaResponse{
		Tier:      tier,
		Limit:     decision.Limit,
		Used:      count,
		Remaining: decision.Remaining,
		Allowed:   decision.Allowed,
	})
}

// ListPackages returns the purchasable subscription packages
func (h *SubscriptionHandler) ListPackages(c *gin.Context) {
	h.Success(c, entitlement.DefaultPackages())
}

// PurchaseRequest is the body of a purchase request
type PurchaseRequest struct {
	PackageRef string `json:"package_ref" binding:"required,packageref"`
}

// PurchaseResponse is the outcome of a purchase or restore
type PurchaseResponse struct {
	Cancelled bool   `json:"cancelled"`
	Tier      string `json:"tier,omitempty"`
}

// Purchase executes a purchase against the billing backend. A cancellation by
// the user is a 200 with cancelled=true, not an error.
func (h *SubscriptionHandler) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "package_ref missing or not a purchasable package")
		return
	}

	session, err := h.sessions.SessionFor(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	outcome, err := session.RequestPurchase(c.Request.Context(), entitlement.PackageRef(req.PackageRef))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PurchaseResponse{Cancelled: outcome.Cancelled, Tier: string(outcome.Tier)})
}

// Restore re-links previous purchases for the authenticated user
func (h *SubscriptionHandler) Restore(c *gin.Context) {
	session, err := h.sessions.SessionFor(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	outcome, err := session.RequestRestore(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, PurchaseResponse{Cancelled: outcome.Cancelled, Tier: string(outcome.Tier)})
}

// TierHistoryEntry is one recorded tier transition
type TierHistoryEntry struct {
	PreviousTier *string   `json:"previous_tier,omitempty"`
	Tier         string    `json:"tier"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// TierHistory returns the most recent tier transitions, newest first
func (h *SubscriptionHandler) TierHistory(c *gin.Context) {
	if h.snapshots == nil {
		h.Success(c, []TierHistoryEntry{})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit < 1 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
	}

	snapshots, err := h.snapshots.ListByUser(c.Request.Context(), middleware.GetUserID(c), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	entries := make([]TierHistoryEntry, len(snapshots))
	for i, s := range snapshots {
		entries[i] = TierHistoryEntry{
			PreviousTier: s.PreviousTier,
			Tier:         s.Tier,
			ResolvedAt:   s.ResolvedAt,
		}
	}
	h.Success(c, entries)
}

// TeardownSession releases the user's billing binding. The next subscription
// or document request binds a fresh session.
func (h *SubscriptionHandler) TeardownSession(c *gin.Context) {
	h.sessions.Teardown(middleware.GetUserID(c))
	h.NoContent(c)
}

// tierChangedData is the SSE payload for a tier transition
type tierChangedData struct {
	PreviousTier *string   `json:"previous_tier,omitempty"`
	CurrentTier  string    `json:"current_tier"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// Stream delivers tier changes for the authenticated user over Server-Sent
// Events. The connection carries an initial state event, tier_changed events
// as they happen, and periodic heartbeats.
func (h *SubscriptionHandler) Stream(c *gin.Context) {
	userID := middleware.GetUserID(c)
	session, err := h.sessions.SessionFor(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// Buffered so a slow write never blocks the session's observer callback.
	changes := make(chan subscription.TierChange, 16)
	unsubscribe := session.SubscribeToTierChanges(func(change subscription.TierChange) {
		select {
		case changes <- change:
		default:
			h.logger.Warn("tier change stream backlogged, dropping event",
				zap.String("user_id", userID))
		}
	})
	defer unsubscribe()

	state, _ := json.Marshal(toStateResponse(session.GetState(c.Request.Context())))
	sendSSE(c.Writer, "state", string(state))
	c.Writer.Flush()

	h.logger.Info("tier change stream connected", zap.String("user_id", userID))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			h.logger.Info("tier change stream disconnected", zap.String("user_id", userID))
			return
		case <-ticker.C:
			sendSSE(c.Writer, "heartbeat", fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()))
			c.Writer.Flush()
		case change := <-changes:
			data := tierChangedData{
				CurrentTier: string(change.Current.ID),
				ResolvedAt:  change.State.ResolvedAt,
			}
			if change.Previous != nil {
				prev := string(change.Previous.ID)
				data.PreviousTier = &prev
			}
			payload, err := json.Marshal(data)
			if err != nil {
				h.logger.Error("failed to marshal tier change event", zap.Error(err))
				continue
			}
			sendSSE(c.Writer, "tier_changed", string(payload))
			c.Writer.Flush()
		}
	}
}

func sendSSE(w io.Writer, event, data string) {
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", data)
}
