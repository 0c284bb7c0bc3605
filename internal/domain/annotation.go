package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Values for Annotation.AnomalyPresence.
const (
	PresenceYes    = "yes"
	PresenceNo     = "no"
	PresenceUnsure = "unsure"
)

// Values for Annotation.TypeCorrectness.
const (
	CorrectnessCorrect   = "correct"
	CorrectnessPartial   = "partial"
	CorrectnessIncorrect = "incorrect"
)

// NotApplicable is the sentinel stored for fields that do not apply to
// a sample without an anomaly.
const NotApplicable = "N/A"

// TimestampLayout is the wire format for annotation timestamps (UTC).
const TimestampLayout = time.RFC3339

// Score is a 1..5 rating. The zero value means "not applicable" and
// marshals as the "N/A" sentinel, matching the persisted schema where
// the field is either a number or the string "N/A".
type Score int

// ScoreNA is the Score for fields forced to "N/A".
const ScoreNA Score = 0

func (s Score) MarshalJSON() ([]byte, error) {
	if s == ScoreNA {
		return []byte(`"` + NotApplicable + `"`), nil
	}
	return json.Marshal(int(s))
}

func (s *Score) UnmarshalJSON(data []byte) error {
	if string(data) == `"`+NotApplicable+`"` {
		*s = ScoreNA
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("score must be a number or %q: %w", NotApplicable, err)
	}
	*s = Score(v)
	return nil
}

// Annotation is one annotator's judgment of one sample. There is at
// most one per (annotator, sample); a later save overwrites it.
type Annotation struct {
	SampleID          string `json:"sample_id"`
	AnnotatorID       string `json:"annotator_id"`
	AnomalyPresence   string `json:"anomaly_presence"`
	TypeCorrectness   string `json:"type_correctness"`
	LocalizationScore Score  `json:"localization_score"`
	GroundedReasoning int    `json:"grounded_reasoning"`
	Timestamp         string `json:"timestamp"`
}

// Draft holds the form values for one sample before they are accepted
// into the session buffer. The validate tags cover the unconditional
// value domains; applicability of the conditional fields is checked
// against the sample in ValidateDraft.
type Draft struct {
	AnomalyPresence   string `json:"anomaly_presence" validate:"required,oneof=yes no unsure"`
	TypeCorrectness   string `json:"type_correctness" validate:"omitempty,oneof=correct partial incorrect N/A"`
	LocalizationScore Score  `json:"localization_score" validate:"min=0,max=5"`
	GroundedReasoning int    `json:"grounded_reasoning" validate:"required,min=1,max=5"`
}

// DefaultDraft returns the values used to pre-populate the form for a
// sample with no prior answer. Defaults never count as a save.
func DefaultDraft() Draft {
	return Draft{
		AnomalyPresence:   PresenceYes,
		TypeCorrectness:   CorrectnessCorrect,
		LocalizationScore: 3,
		GroundedReasoning: 3,
	}
}

// DraftOf converts a stored annotation back into form values. Fields
// persisted as "N/A" fall back to the form defaults, since the form
// only shows them for samples where they apply.
func DraftOf(a Annotation) Draft {
	d := Draft{
		AnomalyPresence:   a.AnomalyPresence,
		TypeCorrectness:   a.TypeCorrectness,
		LocalizationScore: a.LocalizationScore,
		GroundedReasoning: a.GroundedReasoning,
	}
	if d.TypeCorrectness == NotApplicable || d.TypeCorrectness == "" {
		d.TypeCorrectness = CorrectnessCorrect
	}
	if d.LocalizationScore == ScoreNA {
		d.LocalizationScore = 3
	}
	return d
}

// Annotation materializes the draft as the annotation to store for the
// given sample. The conditional fields are forced to "N/A" whenever the
// sample has no anomaly, no matter what the draft carried; the sample's
// ground truth is the only source of that decision.
func (d Draft) Annotation(sample Sample, annotatorID string, now time.Time) Annotation {
	a := Annotation{
		SampleID:          sample.ID,
		AnnotatorID:       annotatorID,
		AnomalyPresence:   d.AnomalyPresence,
		TypeCorrectness:   d.TypeCorrectness,
		LocalizationScore: d.LocalizationScore,
		GroundedReasoning: d.GroundedReasoning,
		Timestamp:         now.UTC().Format(TimestampLayout),
	}
	if !sample.HasAnomaly() {
		a.TypeCorrectness = NotApplicable
		a.LocalizationScore = ScoreNA
	}
	return a
}

// AnnotationStore persists one annotator's full annotation set.
type AnnotationStore interface {
	// Load returns all annotations stored for the annotator. A store
	// that does not exist yet yields an empty set; an unreadable or
	// malformed store is an error.
	Load(ctx context.Context, annotatorID string) ([]Annotation, error)

	// SaveAll atomically replaces the annotator's persisted set. No
	// partially written state may ever be observable.
	SaveAll(ctx context.Context, annotatorID string, annotations []Annotation) error

	// ListAnnotators returns the ids of annotators with a stored set.
	ListAnnotators(ctx context.Context) ([]string, error)
}
