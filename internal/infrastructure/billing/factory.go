package billing

import (
	"github.com/docspace/backend/internal/application/subscription"
	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/docspace/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewProviderFactory builds the factory the session manager uses to create
// one provider per user. The Redis client may be nil when push updates are
// disabled.
func NewProviderFactory(cfg config.BillingConfig, redisClient *redis.Client, logger *zap.Logger) subscription.ProviderFactory {
	var push PushSource
	if cfg.PushEnabled && redisClient != nil {
		push = NewRedisPushSource(redisClient, cfg.PushChannel, logger)
	}
	return func(userID string) (entitlement.Provider, error) {
		return NewRESTProvider(cfg, push, logger), nil
	}
}
