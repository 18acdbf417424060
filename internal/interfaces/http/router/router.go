// Package router assembles the gin engine from middleware and handlers.
package router

import (
	"time"

	"github.com/docspace/backend/internal/infrastructure/auth"
	"github.com/docspace/backend/internal/infrastructure/config"
	"github.com/docspace/backend/internal/infrastructure/logger"
	"github.com/docspace/backend/internal/interfaces/http/handler"
	"github.com/docspace/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// RouteRegistrar registers a handler's routes on the API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config contains everything the router needs
type Config struct {
	AppConfig  *config.Config
	Logger     *zap.Logger
	JWTService *auth.JWTService
	System     *handler.SystemHandler
	// BillingRateLimit bounds purchase/restore calls per user per minute;
	// zero disables the limiter.
	BillingRateLimit int
	Registrars       []RouteRegistrar
	// BillingRegistrars get the rate limiter in front of them
	BillingRegistrars []RouteRegistrar
}

// New builds the configured gin engine
func New(cfg Config) *gin.Engine {
	if cfg.AppConfig.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.AppConfig.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.AppConfig.HTTP.TrustedProxies)
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(logger.Recovery(cfg.Logger))
	if cfg.AppConfig.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.AppConfig.Telemetry.ServiceName))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.AppConfig.HTTP.CORSAllowOrigins
	if len(cfg.AppConfig.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.AppConfig.HTTP.CORSAllowMethods
	}
	if len(cfg.AppConfig.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.AppConfig.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.GET("/health", cfg.System.Health)
	engine.GET("/healthz", cfg.System.Health)

	jwtConfig := middleware.DefaultJWTConfig(cfg.JWTService)
	jwtConfig.Logger = cfg.Logger
	engine.Use(middleware.JWTAuthWithConfig(jwtConfig))

	api := engine.Group("/api/v1")
	for _, registrar := range cfg.Registrars {
		registrar.RegisterRoutes(api)
	}

	billing := engine.Group("/api/v1")
	if cfg.BillingRateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.BillingRateLimit, time.Minute)
		billing.Use(middleware.RateLimit(limiter))
	}
	for _, registrar := range cfg.BillingRegistrars {
		registrar.RegisterRoutes(billing)
	}

	return engine
}
