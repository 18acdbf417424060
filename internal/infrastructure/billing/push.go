package billing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPushSource delivers out-of-band entitlement updates published by the
// billing backend on per-user Redis channels (renewals, expiries, purchases
// made on another device).
type RedisPushSource struct {
	client  *redis.Client
	channel string // channel prefix; the user id is appended
	logger  *zap.Logger
}

// NewRedisPushSource creates a push source over an existing Redis client.
// The caller retains ownership of the client.
func NewRedisPushSource(client *redis.Client, channelPrefix string, logger *zap.Logger) *RedisPushSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPushSource{
		client:  client,
		channel: channelPrefix,
		logger:  logger,
	}
}

// Start subscribes to the user's channel and feeds decoded records to the
// sink until the returned stop function is called.
func (s *RedisPushSource) Start(ctx context.Context, userID string, sink func(entitlement.CustomerRecord)) (func(), error) {
	channel := fmt.Sprintf("%s:%s", s.channel, userID)

	subCtx, cancel := context.WithCancel(ctx)
	pubsub := s.client.Subscribe(subCtx, channel)

	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	s.logger.Debug("subscribed to entitlement push channel", zap.String("channel", channel))

	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var payload customerPayload
				if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
					s.logger.Error("failed to unmarshal entitlement push",
						zap.String("channel", channel),
						zap.Error(err))
					continue
				}
				sink(payload.toDomain())
			}
		}
	}()

	stop := func() {
		cancel()
		pubsub.Close()
		<-done
	}
	return stop, nil
}
