package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcript-rag-backend/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLocalSourceListsTranscripts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "call-001.txt", "first call")
	writeFile(t, dir, "call-002.txt", "second call")
	writeFile(t, dir, "notes.md", "not a transcript")

	src, err := NewLocalSource(dir)
	require.NoError(t, err)

	ids, err := src.ListIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"call-001", "call-002"}, ids)
}

func TestLocalSourceLoadUsesMetadataNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "call-001.txt", "transcript body")
	writeFile(t, dir, "metadata.json", `{"call-001": {"name": "Discovery call with Acme"}}`)

	src, err := NewLocalSource(dir)
	require.NoError(t, err)

	doc, err := src.Load("call-001")
	require.NoError(t, err)
	assert.Equal(t, "call-001", doc.ID)
	assert.Equal(t, "Discovery call with Acme", doc.Name)
	assert.Equal(t, "transcript body", doc.Content)
	assert.Equal(t, models.TypeTranscript, doc.Type)
}

func TestLocalSourceFallsBackToFilename(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "call-002.txt", "body")

	src, err := NewLocalSource(dir)
	require.NoError(t, err)

	doc, err := src.Load("call-002")
	require.NoError(t, err)
	assert.Equal(t, "call-002.txt", doc.Name)
}

func TestLocalSourceRejectsBadMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "metadata.json", "{not json")

	_, err := NewLocalSource(dir)
	require.Error(t, err)
}

func TestLocalSourceMissingDirectory(t *testing.T) {
	_, err := NewLocalSource(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestLoadAllSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "call-001.txt", "body")

	src, err := NewLocalSource(dir)
	require.NoError(t, err)

	docs := src.LoadAll([]string{"call-001", "missing"})
	require.Len(t, docs, 1)
	assert.Equal(t, "call-001", docs[0].ID)
}
