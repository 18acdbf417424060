// Package cache provides Redis-backed fan-out of document count changes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/docspace/backend/internal/domain/document"
	"github.com/docspace/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultCloseTimeout = 5 * time.Second

// DefaultCountChannel is the Pub/Sub channel document count changes go on
const DefaultCountChannel = "documents:count"

// RedisCountNotifier implements document.CountNotifier using Redis Pub/Sub.
// Count changes fan out to every running instance so each can re-evaluate
// quota against the latest count.
type RedisCountNotifier struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	channel    string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// RedisCountNotifierOption is a functional option for configuring the notifier
type RedisCountNotifierOption func(*RedisCountNotifier)

// WithNotifierChannel sets the Pub/Sub channel name
func WithNotifierChannel(channel string) RedisCountNotifierOption {
	return func(n *RedisCountNotifier) {
		n.channel = channel
	}
}

// WithNotifierLogger sets the logger for the notifier
func WithNotifierLogger(logger *zap.Logger) RedisCountNotifierOption {
	return func(n *RedisCountNotifier) {
		n.logger = logger
	}
}

// NewRedisCountNotifier creates a notifier with its own Redis connection
func NewRedisCountNotifier(cfg config.RedisConfig, opts ...RedisCountNotifierOption) (*RedisCountNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	notifier := newNotifier(client, true, opts...)
	return notifier, nil
}

// NewRedisCountNotifierWithClient creates a notifier with an existing Redis
// client. The caller retains ownership of the client and must close it.
func NewRedisCountNotifierWithClient(client *redis.Client, opts ...RedisCountNotifierOption) *RedisCountNotifier {
	return newNotifier(client, false, opts...)
}

func newNotifier(client *redis.Client, ownsClient bool, opts ...RedisCountNotifierOption) *RedisCountNotifier {
	notifier := &RedisCountNotifier{
		client:     client,
		ownsClient: ownsClient,
		channel:    DefaultCountChannel,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier
}

// PublishCountChange broadcasts a count update to all subscribers
func (n *RedisCountNotifier) PublishCountChange(ctx context.Context, change document.CountChange) error {
	if change.ChangedAt.IsZero() {
		change.ChangedAt = time.Now()
	}

	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal count change: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		n.logger.Error("Failed to publish count change",
			zap.String("channel", n.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish count change: %w", err)
	}

	n.logger.Debug("Published count change",
		zap.String("owner_id", change.OwnerID),
		zap.Int64("count", change.Count))
	return nil
}

// Subscribe starts listening for count changes. The callback is invoked for
// each received change. This method blocks and should run in a goroutine.
func (n *RedisCountNotifier) Subscribe(ctx context.Context, callback func(change document.CountChange)) error {
	n.mu.Lock()
	if n.isRunning {
		n.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	n.isRunning = true
	n.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	n.mu.Lock()
	n.cancelFn = cancel
	n.mu.Unlock()

	pubsub := n.client.Subscribe(subCtx, n.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		n.mu.Lock()
		n.isRunning = false
		n.mu.Unlock()
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	n.logger.Info("Subscribed to count change channel", zap.String("channel", n.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			n.mu.Lock()
			n.isRunning = false
			n.mu.Unlock()
			n.markDone()
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				n.logger.Warn("Count change channel closed")
				n.mu.Lock()
				n.isRunning = false
				n.mu.Unlock()
				n.markDone()
				return nil
			}

			var change document.CountChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				n.logger.Error("Failed to unmarshal count change",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}

			// Run the callback off the receive loop so a slow consumer
			// cannot stall the stream.
			go func(c document.CountChange) {
				defer func() {
					if r := recover(); r != nil {
						n.logger.Error("Panic in count change callback", zap.Any("panic", r))
					}
				}()
				callback(c)
			}(change)
		}
	}
}

func (n *RedisCountNotifier) markDone() {
	n.doneOnce.Do(func() {
		close(n.doneCh)
	})
}

// Close releases any resources held by the notifier
func (n *RedisCountNotifier) Close() error {
	n.mu.Lock()
	cancelFn := n.cancelFn
	n.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-n.doneCh:
		case <-time.After(defaultCloseTimeout):
			n.logger.Warn("Timeout waiting for subscription to stop")
		}
	}

	if n.ownsClient {
		return n.client.Close()
	}
	return nil
}

// Ensure RedisCountNotifier implements document.CountNotifier
var _ document.CountNotifier = (*RedisCountNotifier)(nil)
