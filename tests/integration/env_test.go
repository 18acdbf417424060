package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	appdoc "github.com/docspace/backend/internal/application/document"
	"github.com/docspace/backend/internal/application/subscription"
	"github.com/docspace/backend/internal/domain/document"
	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/docspace/backend/internal/infrastructure/auth"
	"github.com/docspace/backend/internal/infrastructure/config"
	"github.com/docspace/backend/internal/infrastructure/event"
	"github.com/docspace/backend/internal/infrastructure/persistence"
	"github.com/docspace/backend/internal/interfaces/http/handler"
	"github.com/docspace/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeProvider is a billing backend serving a mutable customer record
type fakeProvider struct {
	mu      sync.Mutex
	record  entitlement.CustomerRecord
	updates chan entitlement.CustomerRecord
}

func newFakeProvider(record entitlement.CustomerRecord) *fakeProvider {
	return &fakeProvider{
		record:  record,
		updates: make(chan entitlement.CustomerRecord),
	}
}

func (p *fakeProvider) current() entitlement.CustomerRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record
}

func (p *fakeProvider) Bind(ctx context.Context, userID string) (entitlement.CustomerRecord, error) {
	return p.current(), nil
}

func (p *fakeProvider) FetchRecord(ctx context.Context) (entitlement.CustomerRecord, error) {
	return p.current(), nil
}

func (p *fakeProvider) Purchase(ctx context.Context, ref entitlement.PackageRef) (entitlement.CustomerRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record.Entitlements = append(p.record.Entitlements,
		entitlement.Entitlement{ID: string(ref), IsActive: true})
	return p.record, nil
}

func (p *fakeProvider) Restore(ctx context.Context) (entitlement.CustomerRecord, error) {
	return p.current(), nil
}

func (p *fakeProvider) Updates() <-chan entitlement.CustomerRecord {
	return p.updates
}

func (p *fakeProvider) Close() error {
	return nil
}

// env is a full server over sqlite with a fake billing backend
type env struct {
	engine   *gin.Engine
	provider *fakeProvider
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "docspace-backend",
			Env:  "test",
			Port: "0",
		},
		JWT: config.JWTConfig{
			Secret:          "integration-secret-at-least-32-chars!",
			TokenExpiration: time.Hour,
			Issuer:          "docspace-test",
		},
	}
}

func newEnv(t *testing.T, record entitlement.CustomerRecord) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&document.Document{}, &entitlement.TierSnapshot{}))

	log := zap.NewNop()
	documentRepo := persistence.NewGormDocumentRepository(db)
	snapshotRepo := persistence.NewGormTierSnapshotRepository(db)

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(subscription.NewSnapshotHandler(snapshotRepo, log))
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	provider := newFakeProvider(record)
	manager := subscription.NewManager(subscription.ManagerConfig{
		Factory: func(userID string) (entitlement.Provider, error) {
			return provider, nil
		},
		Resolver: entitlement.NewResolver(entitlement.DefaultCatalog()),
		Counter:  documentRepo,
		Events:   bus,
		Logger:   log,
	})
	t.Cleanup(manager.TeardownAll)

	documentService := appdoc.NewService(appdoc.ServiceConfig{
		Repository: documentRepo,
		Sessions:   manager,
		Events:     bus,
		Logger:     log,
	})

	cfg := testConfig()
	jwtService := auth.NewJWTService(cfg.JWT)

	engine := router.New(router.Config{
		AppConfig:  cfg,
		Logger:     log,
		JWTService: jwtService,
		System:     handler.NewSystemHandler(&persistence.Database{DB: db}),
		Registrars: []router.RouteRegistrar{
			handler.NewDocumentHandler(documentService),
			handler.NewAuthHandler(jwtService),
		},
		BillingRegistrars: []router.RouteRegistrar{
			handler.NewSubscriptionHandler(handler.SubscriptionHandlerConfig{
				Sessions:  manager,
				Snapshots: snapshotRepo,
				Counter:   documentRepo,
				Logger:    log,
			}),
		},
	})

	return &env{engine: engine, provider: provider}
}

func (e *env) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// login issues a token for a user through the public sessions endpoint
func (e *env) login(t *testing.T, userID string) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/v1/auth/sessions", "", `{"user_id":"`+userID+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	return data(t, w)["token"].(string)
}

func data(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope.Error.Code
}
