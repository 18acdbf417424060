package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/docspace/backend/internal/application/subscription"
	"github.com/docspace/backend/internal/domain/document"
	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/docspace/backend/internal/domain/shared"
	"github.com/docspace/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// stubProvider serves a fixed customer record
type stubProvider struct {
	mu          sync.Mutex
	record      entitlement.CustomerRecord
	bindErr     error
	purchaseErr error
	updates     chan entitlement.CustomerRecord
}

func newStubProvider(record entitlement.CustomerRecord) *stubProvider {
	return &stubProvider{
		record:  record,
		updates: make(chan entitlement.CustomerRecord),
	}
}

func (p *stubProvider) setRecord(record entitlement.CustomerRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record = record
}

func (p *stubProvider) current() entitlement.CustomerRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.record
}

func (p *stubProvider) Bind(ctx context.Context, userID string) (entitlement.CustomerRecord, error) {
	p.mu.Lock()
	bindErr := p.bindErr
	p.mu.Unlock()
	if bindErr != nil {
		return entitlement.CustomerRecord{}, bindErr
	}
	return p.current(), nil
}

func (p *stubProvider) FetchRecord(ctx context.Context) (entitlement.CustomerRecord, error) {
	return p.current(), nil
}

func (p *stubProvider) Purchase(ctx context.Context, ref entitlement.PackageRef) (entitlement.CustomerRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.purchaseErr != nil {
		return entitlement.CustomerRecord{}, p.purchaseErr
	}
	p.record.Entitlements = append(p.record.Entitlements,
		entitlement.Entitlement{ID: string(ref), IsActive: true})
	return p.record, nil
}

func (p *stubProvider) Restore(ctx context.Context) (entitlement.CustomerRecord, error) {
	return p.current(), nil
}

func (p *stubProvider) Updates() <-chan entitlement.CustomerRecord {
	return p.updates
}

func (p *stubProvider) Close() error {
	return nil
}

// memRepo is an in-memory document.Repository
type memRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]document.Document
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[uuid.UUID]document.Document)}
}

func (r *memRepo) Save(ctx context.Context, doc *document.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memRepo) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &doc, nil
}

func (r *memRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]document.Document, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var owned []document.Document
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			owned = append(owned, doc)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })

	total := int64(len(owned))
	if offset >= len(owned) {
		return nil, total, nil
	}
	owned = owned[offset:]
	if limit < len(owned) {
		owned = owned[:limit]
	}
	return owned, total, nil
}

func (r *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *memRepo) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func activeRecord(userID string, entitlementIDs ...string) entitlement.CustomerRecord {
	record := entitlement.CustomerRecord{UserID: userID}
	for _, id := range entitlementIDs {
		record.Entitlements = append(record.Entitlements,
			entitlement.Entitlement{ID: id, IsActive: true})
	}
	return record
}

func newTestManager(provider entitlement.Provider, counter document.Counter) *subscription.Manager {
	return subscription.NewManager(subscription.ManagerConfig{
		Factory: func(userID string) (entitlement.Provider, error) {
			return provider, nil
		},
		Resolver: entitlement.NewResolver(entitlement.DefaultCatalog()),
		Counter:  counter,
	})
}

// asUser injects the authenticated user id the way the JWT middleware does
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

// testServer wraps a gin engine with request helpers
type testServer struct {
	engine *gin.Engine
}

func newTestServer(userID string, registrars ...interface {
	RegisterRoutes(rg *gin.RouterGroup)
}) *testServer {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(asUser(userID))
	api := engine.Group("/api/v1")
	for _, r := range registrars {
		r.RegisterRoutes(api)
	}
	return &testServer{engine: engine}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.False(t, envelope.Success)
	return envelope.Error.Code, envelope.Error.Message
}

func seedDocuments(t *testing.T, repo *memRepo, ownerID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		doc, err := document.New(ownerID, fmt.Sprintf("doc %d", i), "body")
		require.NoError(t, err)
		require.NoError(t, repo.Save(context.Background(), doc))
	}
}

// seedOne creates a single document for an owner and returns its id
func seedOne(t *testing.T, repo *memRepo, ownerID string) string {
	t.Helper()
	doc, err := document.New(ownerID, "foreign doc", "body")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), doc))
	return doc.ID.String()
}
