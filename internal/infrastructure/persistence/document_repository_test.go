package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/docspace/backend/internal/domain/document"
	"github.com/docspace/backend/internal/domain/entitlement"
	"github.com/docspace/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&document.Document{}, &entitlement.TierSnapshot{}))
	return db
}

func mustDoc(t *testing.T, ownerID, title string) *document.Document {
	t.Helper()
	doc, err := document.New(ownerID, title, "body")
	require.NoError(t, err)
	return doc
}

func TestGormDocumentRepository_SaveAndFind(t *testing.T) {
	repo := NewGormDocumentRepository(setupTestDB(t))
	ctx := context.Background()

	doc := mustDoc(t, "user-1", "Notes")
	require.NoError(t, repo.Save(ctx, doc))

	found, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, found.ID)
	assert.Equal(t, "Notes", found.Title)
	assert.Equal(t, "user-1", found.OwnerID)
}

func TestGormDocumentRepository_FindByIDNotFound(t *testing.T) {
	repo := NewGormDocumentRepository(setupTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormDocumentRepository_Update(t *testing.T) {
	repo := NewGormDocumentRepository(setupTestDB(t))
	ctx := context.Background()

	doc := mustDoc(t, "user-1", "Draft")
	require.NoError(t, repo.Save(ctx, doc))

	require.NoError(t, doc.Rename("Final"))
	require.NoError(t, repo.Save(ctx, doc))

	found, err := repo.FindByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", found.Title)
}

func TestGormDocumentRepository_ListByOwner(t *testing.T) {
	repo := NewGormDocumentRepository(setupTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		doc := mustDoc(t, "user-1", "mine")
		doc.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Save(ctx, doc))
	}
	require.NoError(t, repo.Save(ctx, mustDoc(t, "user-2", "theirs")))

	docs, total, err := repo.ListByOwner(ctx, "user-1", 3, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, docs, 3)
	// Newest first.
	assert.True(t, docs[0].CreatedAt.After(docs[1].CreatedAt) || docs[0].CreatedAt.Equal(docs[1].CreatedAt))

	docs, total, err = repo.ListByOwner(ctx, "user-1", 3, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, docs, 2)
}

func TestGormDocumentRepository_Delete(t *testing.T) {
	repo := NewGormDocumentRepository(setupTestDB(t))
	ctx := context.Background()

	doc := mustDoc(t, "user-1", "gone soon")
	require.NoError(t, repo.Save(ctx, doc))

	require.NoError(t, repo.Delete(ctx, doc.ID))

	_, err := repo.FindByID(ctx, doc.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	err = repo.Delete(ctx, doc.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormDocumentRepository_CountByOwner(t *testing.T) {
	repo := NewGormDocumentRepository(setupTestDB(t))
	ctx := context.Background()

	count, err := repo.CountByOwner(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Save(ctx, mustDoc(t, "user-1", "doc")))
	}
	require.NoError(t, repo.Save(ctx, mustDoc(t, "user-2", "doc")))

	count, err = repo.CountByOwner(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestGormTierSnapshotRepository(t *testing.T) {
	repo := NewGormTierSnapshotRepository(setupTestDB(t))
	ctx := context.Background()

	prev := entitlement.TierFree
	first := entitlement.NewTierSnapshot("user-1", nil, entitlement.TierFree, time.Now().Add(-time.Hour))
	second := entitlement.NewTierSnapshot("user-1", &prev, entitlement.TierPro, time.Now())
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))
	require.NoError(t, repo.Save(ctx, entitlement.NewTierSnapshot("user-2", nil, entitlement.TierFree, time.Now())))

	snapshots, err := repo.ListByUser(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	// Newest first; the upgrade carries its previous tier.
	assert.Equal(t, string(entitlement.TierPro), snapshots[0].Tier)
	require.NotNil(t, snapshots[0].PreviousTier)
	assert.Equal(t, string(entitlement.TierFree), *snapshots[0].PreviousTier)
	assert.Nil(t, snapshots[1].PreviousTier)
}
