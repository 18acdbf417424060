package document

import (
	"github.com/docspace/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types for documents
const (
	EventTypeDocumentCreated = "document.created"
	EventTypeDocumentDeleted = "document.deleted"
)

// CreatedEvent is published after a document is persisted
type CreatedEvent struct {
	shared.BaseDomainEvent
	DocumentID uuid.UUID `json:"document_id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
}

// NewCreatedEvent creates a document created event
func NewCreatedEvent(doc *Document) *CreatedEvent {
	return &CreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, doc.OwnerID),
		DocumentID:      doc.ID,
		OwnerID:         doc.OwnerID,
		Title:           doc.Title,
	}
}

// DeletedEvent is published after a document is removed
type DeletedEvent struct {
	shared.BaseDomainEvent
	DocumentID uuid.UUID `json:"document_id"`
	OwnerID    string    `json:"owner_id"`
}

// NewDeletedEvent creates a document deleted event
func NewDeletedEvent(doc *Document) *DeletedEvent {
	return &DeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentDeleted, doc.OwnerID),
		DocumentID:      doc.ID,
		OwnerID:         doc.OwnerID,
	}
}
