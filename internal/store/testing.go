package store

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lewtec/veredito/internal/domain"
)

// SetupTestDB creates an in-memory SQLite database with the schema
// migrations applied.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// TestAnnotation builds a valid annotation fixture for the given keys.
func TestAnnotation(annotatorID, sampleID string) domain.Annotation {
	return domain.Annotation{
		SampleID:          sampleID,
		AnnotatorID:       annotatorID,
		AnomalyPresence:   domain.PresenceYes,
		TypeCorrectness:   domain.CorrectnessCorrect,
		LocalizationScore: 4,
		GroundedReasoning: 5,
		Timestamp:         "2025-06-01T12:00:00Z",
	}
}
