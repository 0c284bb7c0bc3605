package domain

import "context"

// Sample describes one item of the annotation catalog: an image and the
// VLM output produced for it, plus the ground-truth anomaly flag.
// Samples are immutable for the lifetime of a session.
type Sample struct {
	ID           string `json:"id"`
	Image        string `json:"image"`
	VLMOutput    string `json:"vlm_output"`
	AnomalyLabel int    `json:"anomaly_label"`
}

// HasAnomaly reports whether the sample's ground truth marks it anomalous.
// It decides which annotation fields apply, regardless of annotator input.
func (s Sample) HasAnomaly() bool {
	return s.AnomalyLabel != 0
}

// CatalogLoader provides the full list of samples available for annotation.
type CatalogLoader interface {
	// LoadAll returns every catalog sample. A missing or malformed
	// catalog is an error, never an empty result.
	LoadAll(ctx context.Context) ([]Sample, error)
}
