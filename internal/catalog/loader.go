// Package catalog loads the fixed universe of samples available for
// annotation. The catalog is read-only: it is loaded once at startup
// and treated as a fatal precondition when missing or malformed.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/lewtec/veredito/internal/domain"
)

// Loader reads the sample catalog from a JSON file.
type Loader struct {
	fs   billy.Filesystem
	path string
}

// NewLoader creates a Loader for the catalog file at path inside fs.
func NewLoader(fs billy.Filesystem, path string) *Loader {
	return &Loader{fs: fs, path: path}
}

// LoadAll reads and decodes the full catalog. It fails when the file is
// missing, unreadable, malformed, or contains duplicate sample ids.
func (l *Loader) LoadAll(ctx context.Context) ([]domain.Sample, error) {
	data, err := util.ReadFile(l.fs, l.path)
	if err != nil {
		return nil, fmt.Errorf("while reading sample catalog '%s': %w", l.path, err)
	}

	var samples []domain.Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("while decoding sample catalog '%s': %w", l.path, err)
	}

	seen := make(map[string]bool, len(samples))
	for _, sample := range samples {
		if sample.ID == "" {
			return nil, fmt.Errorf("sample catalog '%s' contains a sample without an id", l.path)
		}
		if seen[sample.ID] {
			return nil, fmt.Errorf("sample catalog '%s' contains duplicate sample id '%s'", l.path, sample.ID)
		}
		seen[sample.ID] = true
	}

	return samples, nil
}

// Static is an in-memory CatalogLoader over an already loaded sample
// list. The server loads the catalog once and hands sessions a Static
// view so every session sees the same fixed universe.
type Static []domain.Sample

// LoadAll returns the samples as loaded, never an error.
func (s Static) LoadAll(ctx context.Context) ([]domain.Sample, error) {
	out := make([]domain.Sample, len(s))
	copy(out, s)
	return out, nil
}

var (
	_ domain.CatalogLoader = (*Loader)(nil)
	_ domain.CatalogLoader = (Static)(nil)
)
