package handler

import (
	appdoc "github.com/docspace/backend/internal/application/document"
	"github.com/docspace/backend/internal/interfaces/http/dto"
	"github.com/docspace/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler exposes document CRUD with quota enforcement
type DocumentHandler struct {
	BaseHandler
	docs *appdoc.Service
}

// NewDocumentHandler creates a document handler
func NewDocumentHandler(docs *appdoc.Service) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// RegisterRoutes registers the document routes
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/documents")
	group.POST("", h.Create)
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

// CreateDocumentRequest is the body of a create request
type CreateDocumentRequest struct {
	Title string `json:"title" binding:"required,max=500"`
	Body  string `json:"body"`
}

// Create creates a document. Returns 429 with code QUOTA_EXCEEDED when the
// tier's document limit is reached and 409 with SESSION_UNRESOLVED before the
// first tier resolution.
func (h *DocumentHandler) Create(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "title is required")
		return
	}

	doc, err := h.docs.Create(c.Request.Context(), appdoc.CreateInput{
		OwnerID: middleware.GetUserID(c),
		Title:   req.Title,
		Body:    req.Body,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// List returns a page of the user's documents, newest first
func (h *DocumentHandler) List(c *gin.Context) {
	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "invalid pagination parameters")
		return
	}

	result, err := h.docs.List(c.Request.Context(), appdoc.ListInput{
		OwnerID: middleware.GetUserID(c),
		Limit:   query.Limit,
		Offset:  query.Offset,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Documents, result.Total, query.Limit, query.Offset)
}

// Get returns one of the user's documents
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	doc, err := h.docs.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// UpdateDocumentRequest is the body of an update request. Absent fields stay
// unchanged.
type UpdateDocumentRequest struct {
	Title *string `json:"title" binding:"omitempty,max=500"`
	Body  *string `json:"body"`
}

// Update renames a document or replaces its body
func (h *DocumentHandler) Update(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "invalid request body")
		return
	}

	doc, err := h.docs.Update(c.Request.Context(), appdoc.UpdateInput{
		ID:      id,
		OwnerID: middleware.GetUserID(c),
		Title:   req.Title,
		Body:    req.Body,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Delete removes a document and frees a quota slot
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	if err := h.docs.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *DocumentHandler) documentID(c *gin.Context) (uuid.UUID, bool) {
	var param dto.IDParam
	if err := c.ShouldBindUri(&param); err != nil {
		h.BadRequest(c, "id must be a valid UUID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(param.ID)
	if err != nil {
		h.BadRequest(c, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
