package telemetry

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegisterOtelGorm registers the otelgorm plugin so every query becomes a
// child span of the request trace. Query variables are always omitted from
// span attributes; entitlement and document payloads never belong in traces.
func RegisterOtelGorm(db *gorm.DB, dbName string, logger *zap.Logger) error {
	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName(dbName),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return fmt.Errorf("failed to register otelgorm plugin: %w", err)
	}
	logger.Info("Database query tracing enabled", zap.String("db_name", dbName))
	return nil
}
