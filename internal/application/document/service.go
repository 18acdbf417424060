package document

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/docspace/backend/internal/application/subscription"
	"github.com/docspace/backend/internal/domain/document"
	"github.com/docspace/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuotaExceededError represents an error when the tier's document limit is reached
type QuotaExceededError struct {
	CurrentCount int64
	Limit        int64
	Message      string
}

// Error implements the error interface
func (e *QuotaExceededError) Error() string {
	return e.Message
}

// HTTPStatusCode returns the HTTP status code for this error (429 Too Many Requests)
func (e *QuotaExceededError) HTTPStatusCode() int {
	return http.StatusTooManyRequests
}

// ErrorCode returns the stable API error code for this error
func (e *QuotaExceededError) ErrorCode() string {
	return "QUOTA_EXCEEDED"
}

// NewQuotaExceededError creates a new QuotaExceededError
func NewQuotaExceededError(currentCount, limit int64) *QuotaExceededError {
	return &QuotaExceededError{
		CurrentCount: currentCount,
		Limit:        limit,
		Message: fmt.Sprintf(
			"Document quota exceeded: %d of %d documents used", currentCount, limit),
	}
}

// CreateInput contains input for creating a document
type CreateInput struct {
	OwnerID string
	Title   string
	Body    string
}

// UpdateInput contains input for updating a document
type UpdateInput struct {
	ID      uuid.UUID
	OwnerID string
	Title   *string
	Body    *string
}

// ListInput contains input for listing an owner's documents
type ListInput struct {
	OwnerID string
	Limit   int
	Offset  int
}

// DocumentDTO is the external representation of a document
type DocumentDTO struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListResult contains a page of documents and the owner's total count
type ListResult struct {
	Documents []DocumentDTO `json:"documents"`
	Total     int64         `json:"total"`
}

func toDTO(doc *document.Document) DocumentDTO {
	return DocumentDTO{
		ID:        doc.ID,
		Title:     doc.Title,
		Body:      doc.Body,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// Service handles document lifecycle with tier quota enforcement. Every
// create re-reads the live count and the current tier; no decision is cached
// across attempts.
type Service struct {
	repo     document.Repository
	sessions *subscription.Manager
	notifier document.CountNotifier
	events   shared.EventPublisher
	logger   *zap.Logger
}

// ServiceConfig contains the service's collaborators. Notifier and Events
// are optional.
type ServiceConfig struct {
	Repository document.Repository
	Sessions   *subscription.Manager
	Notifier   document.CountNotifier
	Events     shared.EventPublisher
	Logger     *zap.Logger
}

// NewService creates a document service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     cfg.Repository,
		sessions: cfg.Sessions,
		notifier: cfg.Notifier,
		events:   cfg.Events,
		logger:   logger,
	}
}

// Create persists a new document after the quota gate passes. Creation fails
// with subscription.ErrSessionUnresolved when no tier has been resolved and
// with QuotaExceededError when the tier's limit is reached.
func (s *Service) Create(ctx context.Context, input CreateInput) (DocumentDTO, error) {
	session, err := s.sessions.SessionFor(ctx, input.OwnerID)
	if err != nil {
		return DocumentDTO{}, err
	}

	count, err := s.repo.CountByOwner(ctx, input.OwnerID)
	if err != nil {
		return DocumentDTO{}, err
	}

	decision, err := session.CheckCreateAllowed(count)
	if err != nil {
		return DocumentDTO{}, err
	}
	if !decision.Allowed {
		s.logger.Info("document creation denied by quota",
			zap.String("owner_id", input.OwnerID),
			zap.Int64("count", count),
			zap.Int64("limit", decision.Limit))
		return DocumentDTO{}, NewQuotaExceededError(count, decision.Limit)
	}

	doc, err := document.New(input.OwnerID, input.Title, input.Body)
	if err != nil {
		return DocumentDTO{}, err
	}
	if err := s.repo.Save(ctx, doc); err != nil {
		return DocumentDTO{}, err
	}

	s.afterCountChange(ctx, input.OwnerID, count+1)
	s.publish(ctx, document.NewCreatedEvent(doc))

	s.logger.Info("document created",
		zap.String("owner_id", input.OwnerID),
		zap.String("document_id", doc.ID.String()))
	return toDTO(doc), nil
}

// Get returns one of the owner's documents
func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (DocumentDTO, error) {
	doc, err := s.ownedDocument(ctx, ownerID, id)
	if err != nil {
		return DocumentDTO{}, err
	}
	return toDTO(doc), nil
}

// List returns a page of the owner's documents, newest first
func (s *Service) List(ctx context.Context, input ListInput) (ListResult, error) {
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	docs, total, err := s.repo.ListByOwner(ctx, input.OwnerID, limit, offset)
	if err != nil {
		return ListResult{}, err
	}

	dtos := make([]DocumentDTO, len(docs))
	for i := range docs {
		dtos[i] = toDTO(&docs[i])
	}
	return ListResult{Documents: dtos, Total: total}, nil
}

// Update renames a document or replaces its body
func (s *Service) Update(ctx context.Context, input UpdateInput) (DocumentDTO, error) {
	doc, err := s.ownedDocument(ctx, input.OwnerID, input.ID)
	if err != nil {
		return DocumentDTO{}, err
	}

	if input.Title != nil {
		if err := doc.Rename(*input.Title); err != nil {
			return DocumentDTO{}, err
		}
	}
	if input.Body != nil {
		doc.UpdateBody(*input.Body)
	}

	if err := s.repo.Save(ctx, doc); err != nil {
		return DocumentDTO{}, err
	}
	return toDTO(doc), nil
}

// Delete removes one of the owner's documents and frees a quota slot
func (s *Service) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	doc, err := s.ownedDocument(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Warn("failed to read count after delete",
			zap.String("owner_id", ownerID),
			zap.Error(err))
	} else {
		s.afterCountChange(ctx, ownerID, count)
	}
	s.publish(ctx, document.NewDeletedEvent(doc))

	s.logger.Info("document deleted",
		zap.String("owner_id", ownerID),
		zap.String("document_id", id.String()))
	return nil
}

// Count returns the owner's current document count
func (s *Service) Count(ctx context.Context, ownerID string) (int64, error) {
	return s.repo.CountByOwner(ctx, ownerID)
}

// ownedDocument loads a document and enforces ownership. A foreign document
// reads as not found, not forbidden, to avoid leaking its existence.
func (s *Service) ownedDocument(ctx context.Context, ownerID string, id uuid.UUID) (*document.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, shared.ErrNotFound
	}
	return doc, nil
}

func (s *Service) afterCountChange(ctx context.Context, ownerID string, count int64) {
	if s.notifier == nil {
		return
	}
	change := document.CountChange{OwnerID: ownerID, Count: count, ChangedAt: time.Now()}
	if err := s.notifier.PublishCountChange(ctx, change); err != nil {
		s.logger.Warn("failed to publish count change",
			zap.String("owner_id", ownerID),
			zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, event shared.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish document event",
			zap.String("event_type", event.EventType()),
			zap.Error(err))
	}
}
