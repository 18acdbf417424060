package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/docspace/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.events...)
}

func tierChanged(userID string) shared.DomainEvent {
	return entitlement.NewTierChangedEvent(userID, nil, entitlement.TierPro, time.Now())
}

func TestInMemoryEventBus_PublishToSubscribedType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{entitlement.EventTypeTierChanged}}
	bus.Subscribe(handler)

	err := bus.Publish(context.Background(), tierChanged("user-1"))

	require.NoError(t, err)
	require.Len(t, handler.handled(), 1)
	assert.Equal(t, "user-1", handler.handled()[0].SubjectID())
}

func TestInMemoryEventBus_UnrelatedTypeNotDelivered(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{"something.else"}}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), tierChanged("user-1")))

	assert.Empty(t, handler.handled())
}

func TestInMemoryEventBus_CatchAllHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), tierChanged("user-1")))

	assert.Len(t, handler.handled(), 1)
}

func TestInMemoryEventBus_FailingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{types: []string{entitlement.EventTypeTierChanged}, err: assert.AnError}
	healthy := &recordingHandler{types: []string{entitlement.EventTypeTierChanged}}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), tierChanged("user-1"))

	require.NoError(t, err)
	assert.Len(t, healthy.handled(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{entitlement.EventTypeTierChanged}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), tierChanged("user-1")))

	assert.Empty(t, handler.handled())
}
