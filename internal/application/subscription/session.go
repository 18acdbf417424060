package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/docspace/backend/internal/domain/document"
	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/docspace/backend/internal/domain/quota"
	"github.com/docspace/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Session-level errors
var (
	// ErrSessionUnresolved indicates no tier has been resolved yet; the
	// session never guesses a default tier.
	ErrSessionUnresolved = shared.NewDomainError("SESSION_UNRESOLVED", "Subscription state has not been resolved yet")
	// ErrAlreadyBound indicates the session is already bound and resolving
	ErrAlreadyBound = shared.NewDomainError("ALREADY_BOUND", "Session is already bound to a user")
)

// Status is the session lifecycle state
type Status string

// Session lifecycle states
const (
	StatusUninitialized Status = "uninitialized"
	StatusBinding       Status = "binding"
	StatusReady         Status = "ready"
	StatusRefreshing    Status = "refreshing"
	StatusTornDown      Status = "torn_down"
)

// StateStatus is the externally visible resolution status
type StateStatus string

// Externally visible resolution states
const (
	StateUnresolved StateStatus = "unresolved"
	StateReady      StateStatus = "ready"
)

// State is the snapshot returned by GetState. Tier, Limit and Remaining are
// only set when Status is ready. Limit and Remaining are -1 for unlimited
// tiers; Remaining is nil when no count source is configured or the count
// read failed.
type State struct {
	Status    StateStatus
	Tier      *entitlement.Tier
	Limit     *int64
	Remaining *int64
}

// TierChange is delivered to observers on every tier transition.
// Previous is nil on the first resolution after a bind.
type TierChange struct {
	Previous *entitlement.Tier
	Current  entitlement.Tier
	State    entitlement.ResolvedState
}

// Outcome is the result of a purchase or restore request
type Outcome struct {
	Cancelled bool               `json:"cancelled"`
	Tier      entitlement.TierID `json:"tier,omitempty"`
}

// Config contains the session's collaborators
type Config struct {
	Provider entitlement.Provider
	Resolver *entitlement.Resolver
	Guard    *quota.Guard
	Counter  document.Counter      // optional; enables Remaining in GetState
	Events   shared.EventPublisher // optional; tier changes go on the bus too
	Logger   *zap.Logger
}

// Session owns the one mutable cell of subscription state for a single user:
// the current ResolvedState, or "unresolved" before the first resolution and
// after teardown. All transitions are serialized behind one mutex. Resolution
// requests carry issuance sequence numbers; a resolution that completes after
// a later request was issued is discarded (last-request-wins), so a stale
// record can never overwrite a fresher one.
type Session struct {
	provider entitlement.Provider
	resolver *entitlement.Resolver
	guard    *quota.Guard
	counter  document.Counter
	events   shared.EventPublisher
	logger   *zap.Logger

	mu           sync.Mutex
	status       Status
	userID       string
	resolved     *entitlement.ResolvedState
	issueSeq     uint64
	appliedSeq   uint64
	observers    map[uint64]func(TierChange)
	nextObserver uint64
	pushCancel   context.CancelFunc
	pushDone     chan struct{}
}

// NewSession creates an unbound session
func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	guard := cfg.Guard
	if guard == nil {
		guard = quota.NewGuard()
	}
	return &Session{
		provider:  cfg.Provider,
		resolver:  cfg.Resolver,
		guard:     guard,
		counter:   cfg.Counter,
		events:    cfg.Events,
		logger:    logger,
		status:    StatusUninitialized,
		observers: make(map[uint64]func(TierChange)),
	}
}

// Status returns the session lifecycle state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// UserID returns the bound user id, empty before the first bind
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Bind associates the session with a user and performs the first resolution.
// A failure to obtain a record leaves the session in binding state and is
// surfaced to the caller; the session never silently defaults to the free
// tier. Bind may be retried after a failure.
func (s *Session) Bind(ctx context.Context, userID string) error {
	if userID == "" {
		return entitlement.ErrInvalidUser
	}

	s.mu.Lock()
	switch s.status {
	case StatusUninitialized, StatusBinding, StatusTornDown:
		// bindable
	default:
		s.mu.Unlock()
		return ErrAlreadyBound
	}
	s.status = StatusBinding
	s.userID = userID
	seq := s.nextSeqLocked()
	s.mu.Unlock()

	record, err := s.provider.Bind(ctx, userID)
	if err != nil {
		s.logger.Warn("bind failed, session stays in binding state",
			zap.String("user_id", userID),
			zap.Error(err))
		return err
	}

	s.apply(ctx, seq, record)
	s.startPushLoop()
	return nil
}

// RequestPurchase executes a purchase and re-resolves on success. A purchase
// cancelled by the user is a normal negative outcome, not an error: the
// session reverts to its prior ready state with no observer notification.
// Other failures keep the last good resolved state.
func (s *Session) RequestPurchase(ctx context.Context, ref entitlement.PackageRef) (Outcome, error) {
	seq, err := s.beginRefresh()
	if err != nil {
		return Outcome{}, err
	}

	record, err := s.provider.Purchase(ctx, ref)
	if err != nil {
		s.endRefresh(seq)
		if errors.Is(err, entitlement.ErrUserCancelled) {
			s.logger.Info("purchase cancelled by user",
				zap.String("user_id", s.UserID()),
				zap.String("package", string(ref)))
			return Outcome{Cancelled: true, Tier: s.currentTierID()}, nil
		}
		return Outcome{}, err
	}

	s.apply(ctx, seq, record)
	return Outcome{Tier: s.currentTierID()}, nil
}

// RequestRestore re-links previous purchases and re-resolves on success
func (s *Session) RequestRestore(ctx context.Context) (Outcome, error) {
	seq, err := s.beginRefresh()
	if err != nil {
		return Outcome{}, err
	}

	record, err := s.provider.Restore(ctx)
	if err != nil {
		s.endRefresh(seq)
		return Outcome{}, err
	}

	s.apply(ctx, seq, record)
	return Outcome{Tier: s.currentTierID()}, nil
}

// GetState returns the current resolution snapshot. Before the first
// resolution and after teardown the state is unresolved; once a tier has
// been established it stays visible throughout refreshes
// (stale-but-available). Remaining is computed from the live document count
// when a counter is configured.
func (s *Session) GetState(ctx context.Context) State {
	s.mu.Lock()
	resolved := s.resolved
	userID := s.userID
	s.mu.Unlock()

	if resolved == nil {
		return State{Status: StateUnresolved}
	}

	tier := resolved.Tier
	limit := tier.MaxDocuments
	state := State{
		Status: StateReady,
		Tier:   &tier,
		Limit:  &limit,
	}

	if s.counter != nil {
		count, err := s.counter.CountByOwner(ctx, userID)
		if err != nil {
			s.logger.Warn("failed to read document count",
				zap.String("user_id", userID),
				zap.Error(err))
			return state
		}
		remaining := s.guard.CanCreate(tier, count).Remaining
		state.Remaining = &remaining
	}

	return state
}

// CheckCreateAllowed decides whether a new document may be created given the
// caller-supplied current count. It fails with ErrSessionUnresolved before
// the first resolution; the session never gates on a guessed tier.
func (s *Session) CheckCreateAllowed(currentCount int64) (quota.Decision, error) {
	s.mu.Lock()
	resolved := s.resolved
	s.mu.Unlock()

	if resolved == nil {
		return quota.Decision{}, ErrSessionUnresolved
	}
	return s.guard.CanCreate(resolved.Tier, currentCount), nil
}

// SubscribeToTierChanges registers an observer and returns its unsubscribe
// handle. Observer invocation order is unspecified; all observers see the
// same final ResolvedState for a given transition.
func (s *Session) SubscribeToTierChanges(observer func(TierChange)) func() {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = observer
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Teardown releases the binding to the billing provider. It is safe to call
// at any point, including mid-bind and mid-refresh; in-flight resolutions
// are discarded and no push subscription remains. Subsequent reads report
// unresolved until a new bind occurs.
func (s *Session) Teardown() {
	s.mu.Lock()
	if s.status == StatusTornDown {
		s.mu.Unlock()
		return
	}
	s.status = StatusTornDown
	s.resolved = nil
	s.observers = make(map[uint64]func(TierChange))
	cancel := s.pushCancel
	done := s.pushDone
	s.pushCancel = nil
	s.pushDone = nil
	userID := s.userID
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if err := s.provider.Close(); err != nil {
		s.logger.Warn("failed to close billing provider",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	s.logger.Info("session torn down", zap.String("user_id", userID))
}

// nextSeqLocked issues the next resolution request sequence number.
// Callers must hold the mutex.
func (s *Session) nextSeqLocked() uint64 {
	s.issueSeq++
	return s.issueSeq
}

// beginRefresh issues a sequence number and enters refreshing state.
// The previously resolved tier stays visible to readers throughout.
func (s *Session) beginRefresh() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusReady && s.status != StatusRefreshing {
		return 0, ErrSessionUnresolved
	}
	s.status = StatusRefreshing
	return s.nextSeqLocked(), nil
}

// endRefresh reverts a failed refresh to ready, unless a later request took
// over in the meantime.
func (s *Session) endRefresh(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRefreshing && seq == s.issueSeq {
		s.status = StatusReady
	}
}

// currentTierID returns the resolved tier id, empty when unresolved
func (s *Session) currentTierID() entitlement.TierID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved == nil {
		return ""
	}
	return s.resolved.Tier.ID
}

// apply resolves a record and replaces the cached state. The resolution is
// discarded when the session was torn down or a later request was issued
// meanwhile (last-request-wins by issuance, not completion order).
func (s *Session) apply(ctx context.Context, seq uint64, record entitlement.CustomerRecord) {
	if unknown := s.resolver.UnknownEntitlements(record); len(unknown) > 0 {
		s.logger.Debug("ignoring entitlements with no catalog mapping",
			zap.String("user_id", record.UserID),
			zap.Strings("entitlement_ids", unknown))
	}

	s.mu.Lock()
	if s.status == StatusTornDown {
		s.mu.Unlock()
		return
	}
	if seq != s.issueSeq {
		s.mu.Unlock()
		s.logger.Debug("discarding stale resolution",
			zap.Uint64("seq", seq),
			zap.Uint64("latest_seq", s.issueSeq))
		return
	}

	tier := s.resolver.Resolve(record)
	var previous *entitlement.Tier
	if s.resolved != nil {
		prev := s.resolved.Tier
		previous = &prev
	}

	state := entitlement.ResolvedState{
		Tier:       tier,
		Record:     record,
		ResolvedAt: time.Now(),
	}
	s.resolved = &state
	s.appliedSeq = seq
	s.status = StatusReady
	userID := s.userID

	changed := previous == nil || previous.ID != tier.ID
	var observers []func(TierChange)
	if changed {
		observers = make([]func(TierChange), 0, len(s.observers))
		for _, obs := range s.observers {
			observers = append(observers, obs)
		}
	}
	s.mu.Unlock()

	if !changed {
		return
	}

	s.logger.Info("resolved tier changed",
		zap.String("user_id", userID),
		zap.String("tier", string(tier.ID)))

	change := TierChange{Previous: previous, Current: tier, State: state}
	for _, obs := range observers {
		obs(change)
	}

	if s.events != nil {
		var prevID *entitlement.TierID
		if previous != nil {
			id := previous.ID
			prevID = &id
		}
		event := entitlement.NewTierChangedEvent(userID, prevID, tier.ID, state.ResolvedAt)
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish tier change event",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
}

// startPushLoop consumes the provider's push stream. Each pushed record is a
// fresh resolution request so it participates in last-request-wins ordering
// against in-flight purchases and restores.
func (s *Session) startPushLoop() {
	s.mu.Lock()
	if s.status != StatusReady || s.pushCancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.pushCancel = cancel
	s.pushDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case record, ok := <-s.provider.Updates():
				if !ok {
					return
				}
				s.mu.Lock()
				if s.status == StatusTornDown {
					s.mu.Unlock()
					return
				}
				if s.status == StatusReady {
					s.status = StatusRefreshing
				}
				seq := s.nextSeqLocked()
				s.mu.Unlock()
				s.apply(ctx, seq, record)
			}
		}
	}()
}
