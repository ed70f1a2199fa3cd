// Package source produces documents from a local transcript directory. The
// directory holds one .txt file per transcript, optionally with a
// metadata.json mapping file ids to display names.
package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"transcript-rag-backend/internal/logger"
	"transcript-rag-backend/models"
)

const metadataFile = "metadata.json"

// FileMeta is one entry from the directory's metadata.json cache.
type FileMeta struct {
	Name          string `json:"name"`
	Path          string `json:"path,omitempty"`
	ContentLength int    `json:"contentLength,omitempty"`
}

// LocalSource lists and loads transcripts from a directory.
type LocalSource struct {
	dir  string
	meta map[string]FileMeta
}

// NewLocalSource opens the directory and loads metadata.json when present.
// A missing metadata file is fine; display names fall back to filenames.
func NewLocalSource(dir string) (*LocalSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("transcript directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("transcript directory: %s is not a directory", dir)
	}

	s := &LocalSource{dir: dir, meta: map[string]FileMeta{}}

	raw, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", metadataFile, err)
		}
		logger.Info("No metadata file found, using filenames only", "dir", dir)
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.meta); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", metadataFile, err)
	}
	return s, nil
}

// ListIDs returns the id of every transcript file, without reading contents.
// The id is the filename with the .txt suffix stripped.
func (s *LocalSource) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".txt") || name == metadataFile {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".txt"))
	}
	return ids, nil
}

// Load reads one transcript into a Document. Contents are read lazily per id
// so a large directory never sits in memory all at once.
func (s *LocalSource) Load(id string) (models.Document, error) {
	path := filepath.Join(s.dir, id+".txt")
	content, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("reading transcript %s: %w", id, err)
	}

	name := id + ".txt"
	if m, ok := s.meta[id]; ok && m.Name != "" {
		name = m.Name
	}

	return models.Document{
		ID:      id,
		Name:    name,
		Content: string(content),
		Type:    models.TypeTranscript,
	}, nil
}

// LoadAll loads the given ids, skipping unreadable files with a warning.
func (s *LocalSource) LoadAll(ids []string) []models.Document {
	docs := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Load(id)
		if err != nil {
			logger.Warn("Skipping unreadable transcript", "id", id, "error", err.Error())
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}
