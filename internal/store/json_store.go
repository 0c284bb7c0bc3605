// Package store provides the durable annotation stores. Two backends
// implement domain.AnnotationStore: a JSON file per annotator and a
// SQLite database. Both replace the annotator's full set atomically on
// every save.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/lewtec/veredito/internal/domain"
)

// JSONStore keeps one pretty-printed JSON file per annotator inside a
// directory. Writes go to a temp file first and are renamed into place,
// so readers never observe a half-written set.
type JSONStore struct {
	fs billy.Filesystem
}

// NewJSONStore creates a JSONStore rooted at fs.
func NewJSONStore(fs billy.Filesystem) *JSONStore {
	return &JSONStore{fs: fs}
}

func annotationFile(annotatorID string) (string, error) {
	if annotatorID == "" {
		return "", fmt.Errorf("annotator id must not be empty")
	}
	if strings.ContainsAny(annotatorID, "/\\") {
		return "", fmt.Errorf("annotator id '%s' must not contain path separators", annotatorID)
	}
	return annotatorID + ".json", nil
}

// Load reads the annotator's stored set. A file that does not exist is
// an empty set; a file that exists but cannot be decoded is an error,
// so a corrupted store never silently restarts from scratch.
func (s *JSONStore) Load(ctx context.Context, annotatorID string) ([]domain.Annotation, error) {
	name, err := annotationFile(annotatorID)
	if err != nil {
		return nil, err
	}

	data, err := util.ReadFile(s.fs, name)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while reading annotation store '%s': %w", name, err)
	}

	var annotations []domain.Annotation
	if err := json.Unmarshal(data, &annotations); err != nil {
		return nil, fmt.Errorf("while decoding annotation store '%s': %w", name, err)
	}
	return annotations, nil
}

// SaveAll replaces the annotator's persisted set in one atomic step.
func (s *JSONStore) SaveAll(ctx context.Context, annotatorID string, annotations []domain.Annotation) error {
	name, err := annotationFile(annotatorID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(annotations, "", "  ")
	if err != nil {
		return fmt.Errorf("while encoding annotations for '%s': %w", annotatorID, err)
	}

	tempName := name + ".tmp"
	if err := util.WriteFile(s.fs, tempName, data, 0644); err != nil {
		return fmt.Errorf("while writing annotation store '%s': %w", tempName, err)
	}
	if err := s.fs.Rename(tempName, name); err != nil {
		s.fs.Remove(tempName)
		return fmt.Errorf("while replacing annotation store '%s': %w", name, err)
	}
	return nil
}

// ListAnnotators returns the annotator ids with a stored set, sorted.
func (s *JSONStore) ListAnnotators(ctx context.Context) ([]string, error) {
	entries, err := s.fs.ReadDir("/")
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while listing annotation stores: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

var _ domain.AnnotationStore = (*JSONStore)(nil)
