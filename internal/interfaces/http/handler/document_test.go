package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	appdoc "github.com/docspace/backend/internal/application/document"
	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDocumentFixture(t *testing.T, record entitlement.CustomerRecord) (*testServer, *memRepo) {
	t.Helper()
	provider := newStubProvider(record)
	repo := newMemRepo()
	manager := newTestManager(provider, repo)
	t.Cleanup(manager.TeardownAll)

	service := appdoc.NewService(appdoc.ServiceConfig{
		Repository: repo,
		Sessions:   manager,
	})
	return newTestServer(record.UserID, NewDocumentHandler(service)), repo
}

func TestDocumentHandler_CreateAndGet(t *testing.T) {
	server, _ := newDocumentFixture(t, activeRecord("user-1", "pro"))

	w := server.do(http.MethodPost, "/api/v1/documents",
		`{"title":"Meeting notes","body":"agenda"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "Meeting notes", data["title"])
	id := data["id"].(string)

	w = server.do(http.MethodGet, "/api/v1/documents/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "agenda", decodeData(t, w)["body"])
}

func TestDocumentHandler_CreateRequiresTitle(t *testing.T) {
	server, _ := newDocumentFixture(t, activeRecord("user-1"))

	w := server.do(http.MethodPost, "/api/v1/documents", `{"body":"no title"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_CreateDeniedAtQuotaLimit(t *testing.T) {
	server, repo := newDocumentFixture(t, activeRecord("user-1"))
	seedDocuments(t, repo, "user-1", 10)

	w := server.do(http.MethodPost, "/api/v1/documents", `{"title":"one too many"}`)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	code, message := decodeError(t, w)
	assert.Equal(t, "QUOTA_EXCEEDED", code)
	assert.Contains(t, message, "10")
}

func TestDocumentHandler_DeleteFreesQuotaSlot(t *testing.T) {
	server, repo := newDocumentFixture(t, activeRecord("user-1"))
	seedDocuments(t, repo, "user-1", 9)

	w := server.do(http.MethodPost, "/api/v1/documents", `{"title":"last slot"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeData(t, w)["id"].(string)

	require.Equal(t, http.StatusTooManyRequests,
		server.do(http.MethodPost, "/api/v1/documents", `{"title":"over"}`).Code)

	require.Equal(t, http.StatusNoContent,
		server.do(http.MethodDelete, "/api/v1/documents/"+id, "").Code)

	require.Equal(t, http.StatusCreated,
		server.do(http.MethodPost, "/api/v1/documents", `{"title":"fits again"}`).Code)
}

func TestDocumentHandler_List(t *testing.T) {
	server, repo := newDocumentFixture(t, activeRecord("user-1", "pro"))
	seedDocuments(t, repo, "user-1", 25)

	w := server.do(http.MethodGet, "/api/v1/documents?limit=10&offset=20", "")

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data []map[string]any `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 5)
	assert.EqualValues(t, 25, envelope.Meta.Total)
}

func TestDocumentHandler_Update(t *testing.T) {
	server, _ := newDocumentFixture(t, activeRecord("user-1", "pro"))

	w := server.do(http.MethodPost, "/api/v1/documents", `{"title":"draft"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeData(t, w)["id"].(string)

	w = server.do(http.MethodPut, "/api/v1/documents/"+id, `{"title":"final"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "final", decodeData(t, w)["title"])
}

func TestDocumentHandler_ForeignDocumentReadsAsNotFound(t *testing.T) {
	server, repo := newDocumentFixture(t, activeRecord("user-1", "pro"))

	otherDoc := seedOne(t, repo, "user-2")

	w := server.do(http.MethodGet, "/api/v1/documents/"+otherDoc, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	code, _ := decodeError(t, w)
	assert.Equal(t, "NOT_FOUND", code)
}

func TestDocumentHandler_InvalidID(t *testing.T) {
	server, _ := newDocumentFixture(t, activeRecord("user-1"))

	w := server.do(http.MethodGet, "/api/v1/documents/not-a-uuid", "")

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_CreateFailsWhileUnresolved(t *testing.T) {
	provider := newStubProvider(activeRecord("user-1"))
	provider.bindErr = entitlement.ErrProviderUnavailable
	repo := newMemRepo()
	manager := newTestManager(provider, repo)
	t.Cleanup(manager.TeardownAll)

	service := appdoc.NewService(appdoc.ServiceConfig{
		Repository: repo,
		Sessions:   manager,
	})
	server := newTestServer("user-1", NewDocumentHandler(service))

	w := server.do(http.MethodPost, "/api/v1/documents", `{"title":"blocked"}`)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	code, _ := decodeError(t, w)
	assert.Equal(t, "PROVIDER_UNAVAILABLE", code)

	count, err := repo.CountByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}
