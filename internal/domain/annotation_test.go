package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestScore_JSON(t *testing.T) {
	t.Run("marshals N/A sentinel for zero value", func(t *testing.T) {
		data, err := json.Marshal(ScoreNA)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != `"N/A"` {
			t.Errorf("Marshal() = %s, want \"N/A\"", data)
		}
	})

	t.Run("round trips a numeric score", func(t *testing.T) {
		data, err := json.Marshal(Score(4))
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var s Score
		if err := json.Unmarshal(data, &s); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if s != 4 {
			t.Errorf("Score = %d, want 4", s)
		}
	})

	t.Run("accepts the N/A sentinel", func(t *testing.T) {
		var s Score = 5
		if err := json.Unmarshal([]byte(`"N/A"`), &s); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if s != ScoreNA {
			t.Errorf("Score = %d, want ScoreNA", s)
		}
	})

	t.Run("rejects other strings", func(t *testing.T) {
		var s Score
		if err := json.Unmarshal([]byte(`"high"`), &s); err == nil {
			t.Error("Unmarshal() expected error for non-sentinel string")
		}
	})
}

func TestDraft_Annotation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	draft := Draft{
		AnomalyPresence:   PresenceYes,
		TypeCorrectness:   CorrectnessPartial,
		LocalizationScore: 4,
		GroundedReasoning: 5,
	}

	t.Run("keeps conditional fields for anomalous samples", func(t *testing.T) {
		sample := Sample{ID: "s1", AnomalyLabel: 1}
		ann := draft.Annotation(sample, "A1", now)

		if ann.SampleID != "s1" || ann.AnnotatorID != "A1" {
			t.Errorf("keys = (%q, %q), want (s1, A1)", ann.SampleID, ann.AnnotatorID)
		}
		if ann.TypeCorrectness != CorrectnessPartial {
			t.Errorf("TypeCorrectness = %q, want partial", ann.TypeCorrectness)
		}
		if ann.LocalizationScore != 4 {
			t.Errorf("LocalizationScore = %d, want 4", ann.LocalizationScore)
		}
		if ann.Timestamp != "2025-06-01T12:30:00Z" {
			t.Errorf("Timestamp = %q, want UTC RFC3339", ann.Timestamp)
		}
	})

	t.Run("forces N/A for samples without anomaly regardless of input", func(t *testing.T) {
		sample := Sample{ID: "s2", AnomalyLabel: 0}
		ann := draft.Annotation(sample, "A1", now)

		if ann.TypeCorrectness != NotApplicable {
			t.Errorf("TypeCorrectness = %q, want N/A", ann.TypeCorrectness)
		}
		if ann.LocalizationScore != ScoreNA {
			t.Errorf("LocalizationScore = %d, want N/A", ann.LocalizationScore)
		}
		if ann.GroundedReasoning != 5 {
			t.Errorf("GroundedReasoning = %d, want 5 (unconditional field)", ann.GroundedReasoning)
		}
	})
}

func TestDraftOf(t *testing.T) {
	t.Run("restores stored answers", func(t *testing.T) {
		ann := Annotation{
			AnomalyPresence:   PresenceNo,
			TypeCorrectness:   CorrectnessIncorrect,
			LocalizationScore: 2,
			GroundedReasoning: 1,
		}
		d := DraftOf(ann)
		if d.AnomalyPresence != PresenceNo || d.TypeCorrectness != CorrectnessIncorrect {
			t.Errorf("DraftOf() = %+v, want stored values", d)
		}
	})

	t.Run("replaces N/A fields with form defaults", func(t *testing.T) {
		ann := Annotation{
			AnomalyPresence:   PresenceUnsure,
			TypeCorrectness:   NotApplicable,
			LocalizationScore: ScoreNA,
			GroundedReasoning: 2,
		}
		d := DraftOf(ann)
		if d.TypeCorrectness != CorrectnessCorrect {
			t.Errorf("TypeCorrectness = %q, want default", d.TypeCorrectness)
		}
		if d.LocalizationScore != 3 {
			t.Errorf("LocalizationScore = %d, want default 3", d.LocalizationScore)
		}
	})
}

func TestValidateDraft(t *testing.T) {
	valid := Draft{
		AnomalyPresence:   PresenceYes,
		TypeCorrectness:   CorrectnessCorrect,
		LocalizationScore: 3,
		GroundedReasoning: 3,
	}

	t.Run("accepts a valid draft", func(t *testing.T) {
		if err := ValidateDraft(valid, true); err != nil {
			t.Errorf("ValidateDraft() error = %v", err)
		}
	})

	t.Run("rejects unknown anomaly presence", func(t *testing.T) {
		d := valid
		d.AnomalyPresence = "maybe"
		err := ValidateDraft(d, true)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ValidateDraft() error = %v, want *ValidationError", err)
		}
		if _, ok := verr.Fields["anomaly_presence"]; !ok {
			t.Errorf("Fields = %v, want anomaly_presence entry", verr.Fields)
		}
	})

	t.Run("rejects out-of-range grounded reasoning", func(t *testing.T) {
		d := valid
		d.GroundedReasoning = 6
		err := ValidateDraft(d, false)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ValidateDraft() error = %v, want *ValidationError", err)
		}
		if _, ok := verr.Fields["grounded_reasoning"]; !ok {
			t.Errorf("Fields = %v, want grounded_reasoning entry", verr.Fields)
		}
	})

	t.Run("requires conditional fields when the sample has an anomaly", func(t *testing.T) {
		d := valid
		d.TypeCorrectness = NotApplicable
		d.LocalizationScore = ScoreNA
		err := ValidateDraft(d, true)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("ValidateDraft() error = %v, want *ValidationError", err)
		}
		if _, ok := verr.Fields["type_correctness"]; !ok {
			t.Errorf("Fields = %v, want type_correctness entry", verr.Fields)
		}
		if _, ok := verr.Fields["localization_score"]; !ok {
			t.Errorf("Fields = %v, want localization_score entry", verr.Fields)
		}
	})

	t.Run("ignores conditional fields when the sample has no anomaly", func(t *testing.T) {
		d := valid
		d.TypeCorrectness = NotApplicable
		d.LocalizationScore = ScoreNA
		if err := ValidateDraft(d, false); err != nil {
			t.Errorf("ValidateDraft() error = %v", err)
		}
	})
}
