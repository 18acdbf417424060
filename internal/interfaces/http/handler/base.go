// Package handler contains the HTTP handlers for the API surface.
package handler

import (
	"errors"
	"net/http"

	"github.com/docspace/backend/internal/domain/shared"
	"github.com/docspace/backend/internal/interfaces/http/dto"
	"github.com/docspace/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// HTTPStatusCoder is implemented by errors that carry their own HTTP status
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// ErrorCoder is implemented by errors that carry a stable error code
type ErrorCoder interface {
	ErrorCode() string
}

// BaseHandler provides common response utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, limit, offset int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, limit, offset))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with an explicit status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps application and domain errors to HTTP responses. Errors
// carrying their own status or code take precedence; domain error codes map
// through the dto status table; anything else is a 500 without leaking the
// underlying message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := dto.ErrCodeInternal
	message := "An unexpected error occurred"

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
	} else if coder, ok := err.(ErrorCoder); ok {
		code = coder.ErrorCode()
		message = err.Error()
	}

	status := dto.GetHTTPStatus(code)
	if coder, ok := err.(HTTPStatusCoder); ok {
		status = coder.HTTPStatusCode()
		if code == dto.ErrCodeInternal {
			message = err.Error()
		}
	}

	h.Error(c, status, code, message)
}
