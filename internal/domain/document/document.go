// Package document provides the domain model for user documents. The
// subscription engine consumes this package only for counts and count-change
// notifications; document content is owned by the document store.
package document

import (
	"context"
	"strings"
	"time"

	"github.com/docspace/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Document is a user-owned document
type Document struct {
	shared.BaseEntity
	OwnerID string `gorm:"type:text;not null;index"`
	Title   string `gorm:"type:text;not null"`
	Body    string `gorm:"type:text"`
}

// TableName returns the database table name
func (Document) TableName() string {
	return "documents"
}

// New creates a new document
func New(ownerID, title, body string) (*Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner ID cannot be empty")
	}
	if strings.TrimSpace(title) == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Title cannot be empty")
	}

	return &Document{
		BaseEntity: shared.NewBaseEntity(),
		OwnerID:    ownerID,
		Title:      title,
		Body:       body,
	}, nil
}

// Rename updates the document title
func (d *Document) Rename(title string) error {
	if strings.TrimSpace(title) == "" {
		return shared.NewDomainError("INVALID_TITLE", "Title cannot be empty")
	}
	d.Title = title
	d.UpdatedAt = time.Now()
	return nil
}

// UpdateBody replaces the document body
func (d *Document) UpdateBody(body string) {
	d.Body = body
	d.UpdatedAt = time.Now()
}

// Repository persists documents
type Repository interface {
	// Save creates or updates a document
	Save(ctx context.Context, doc *Document) error
	// FindByID finds a document by its id
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)
	// ListByOwner returns a page of the owner's documents, newest first,
	// along with the total count
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Document, int64, error)
	// Delete removes a document
	Delete(ctx context.Context, id uuid.UUID) error
	// CountByOwner returns the number of documents the owner holds
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
}

// Counter is the read-only count view the quota check consumes
type Counter interface {
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
}

// CountChange is one update on the count-notification stream
type CountChange struct {
	OwnerID   string    `json:"owner_id"`
	Count     int64     `json:"count"`
	ChangedAt time.Time `json:"changed_at"`
}

// CountNotifier broadcasts document count changes. The stream is independent
// of tier-change notifications; consumers must re-evaluate quota with the
// latest values of both on every creation attempt.
type CountNotifier interface {
	// PublishCountChange broadcasts a count update
	PublishCountChange(ctx context.Context, change CountChange) error
	// Subscribe invokes the callback for every count update until the
	// notifier is closed or the context is cancelled
	Subscribe(ctx context.Context, callback func(change CountChange)) error
	// Close releases the notifier's resources
	Close() error
}
