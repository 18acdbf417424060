package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appdoc "github.com/docspace/backend/internal/application/document"
	"github.com/docspace/backend/internal/application/subscription"
	"github.com/docspace/backend/internal/domain/document"
	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/docspace/backend/internal/infrastructure/auth"
	"github.com/docspace/backend/internal/infrastructure/billing"
	"github.com/docspace/backend/internal/infrastructure/cache"
	"github.com/docspace/backend/internal/infrastructure/config"
	"github.com/docspace/backend/internal/infrastructure/event"
	"github.com/docspace/backend/internal/infrastructure/logger"
	"github.com/docspace/backend/internal/infrastructure/persistence"
	"github.com/docspace/backend/internal/infrastructure/telemetry"
	"github.com/docspace/backend/internal/interfaces/http/handler"
	"github.com/docspace/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// billingRateLimit bounds purchase/restore calls per user per minute
const billingRateLimit = 30

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Docspace Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterOtelGorm(db.DB, cfg.Database.DBName, log); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}

	// Repositories
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	snapshotRepo := persistence.NewGormTierSnapshotRepository(db.DB)

	// Event bus with the tier snapshot audit handler
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(subscription.NewSnapshotHandler(snapshotRepo, log))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Redis client for out-of-band entitlement pushes from the billing backend
	var redisClient *redis.Client
	if cfg.Billing.PushEnabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
	}

	// Cross-instance document count fan-out. The server stays up without it;
	// quota checks always re-read the local count.
	notifierCtx, notifierCancel := context.WithCancel(context.Background())
	defer notifierCancel()
	var notifier document.CountNotifier
	countNotifier, err := cache.NewRedisCountNotifier(cfg.Redis, cache.WithNotifierLogger(log))
	if err != nil {
		log.Warn("Count change fan-out disabled", zap.Error(err))
	} else {
		notifier = countNotifier
		defer func() {
			if err := countNotifier.Close(); err != nil {
				log.Error("Error closing count notifier", zap.Error(err))
			}
		}()
		go func() {
			err := countNotifier.Subscribe(notifierCtx, func(change document.CountChange) {
				log.Debug("Document count changed",
					zap.String("owner_id", change.OwnerID),
					zap.Int64("count", change.Count))
			})
			if err != nil && notifierCtx.Err() == nil {
				log.Error("Count change subscription stopped", zap.Error(err))
			}
		}()
	}

	// Subscription sessions over the billing provider
	providerFactory := billing.NewProviderFactory(cfg.Billing, redisClient, log)
	resolver := entitlement.NewResolver(entitlement.DefaultCatalog())
	sessionManager := subscription.NewManager(subscription.ManagerConfig{
		Factory:  providerFactory,
		Resolver: resolver,
		Counter:  documentRepo,
		Events:   eventBus,
		Logger:   log,
	})
	defer sessionManager.TeardownAll()

	documentService := appdoc.NewService(appdoc.ServiceConfig{
		Repository: documentRepo,
		Sessions:   sessionManager,
		Notifier:   notifier,
		Events:     eventBus,
		Logger:     log,
	})

	jwtService := auth.NewJWTService(cfg.JWT)

	// Handlers
	subscriptionHandler := handler.NewSubscriptionHandler(handler.SubscriptionHandlerConfig{
		Sessions:  sessionManager,
		Snapshots: snapshotRepo,
		Counter:   documentRepo,
		Logger:    log,
	})
	documentHandler := handler.NewDocumentHandler(documentService)
	authHandler := handler.NewAuthHandler(jwtService)
	systemHandler := handler.NewSystemHandler(db)

	engine := router.New(router.Config{
		AppConfig:         cfg,
		Logger:            log,
		JWTService:        jwtService,
		System:            systemHandler,
		BillingRateLimit:  billingRateLimit,
		Registrars:        []router.RouteRegistrar{documentHandler, authHandler},
		BillingRegistrars: []router.RouteRegistrar{subscriptionHandler},
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
