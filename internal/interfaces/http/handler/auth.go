package handler

import (
	"time"

	"github.com/docspace/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
)

// AuthHandler issues API tokens. Identity verification happens upstream; this
// endpoint exchanges a verified user id for a signed token.
type AuthHandler struct {
	BaseHandler
	jwt *auth.JWTService
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(jwt *auth.JWTService) *AuthHandler {
	return &AuthHandler{jwt: jwt}
}

// RegisterRoutes registers the auth routes
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/sessions", h.CreateSession)
}

// CreateSessionRequest is the body of a token request
type CreateSessionRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// CreateSessionResponse carries the issued token
type CreateSessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateSession issues a signed token for a user id
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "user_id is required")
		return
	}

	token, expiresAt, err := h.jwt.GenerateToken(req.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, CreateSessionResponse{Token: token, ExpiresAt: expiresAt})
}
