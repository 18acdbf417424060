package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"create documents table", "create_documents_table"},
		{"Create-Documents-Table", "create_documents_table"},
		{"CREATE_DOCUMENTS", "create_documents"},
		{"add__tier__snapshots", "add_tier_snapshots"},
		{"Add Index 123", "add_index_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()

	pair, err := Create(dir, "create documents table")
	require.NoError(t, err)

	assert.Len(t, pair.Version, 14)
	assert.True(t, strings.HasSuffix(pair.UpPath, ".up.sql"))
	assert.True(t, strings.HasSuffix(pair.DownPath, ".down.sql"))

	upBase := strings.TrimSuffix(filepath.Base(pair.UpPath), ".up.sql")
	downBase := strings.TrimSuffix(filepath.Base(pair.DownPath), ".down.sql")
	assert.Equal(t, upBase, downBase)

	upContent, err := os.ReadFile(pair.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "create documents table")

	_, err = os.Stat(pair.DownPath)
	assert.NoError(t, err)
}

func TestCreate_MakesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := Create(nested, "init")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"000001_create_documents.up.sql",
		"000001_create_documents.down.sql",
		"000002_create_tier_snapshots.up.sql",
		"000002_create_tier_snapshots.down.sql",
		"README.md",
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("-- test"), 0o644))
	}

	names, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_documents", "000002_create_tier_snapshots"}, names)
}

func TestList_NonexistentDirectory(t *testing.T) {
	names, err := List(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, names)
}
