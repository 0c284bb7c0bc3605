package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/lewtec/veredito/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// OpenSQLite opens (creating if needed) the SQLite database at filename.
func OpenSQLite(filename string) (*sql.DB, error) {
	return sql.Open("sqlite", filename)
}

// SQLiteStore persists annotations in a SQLite database. SaveAll runs a
// delete-then-insert inside a single transaction, so the replacement of
// an annotator's set is atomic.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db as an annotation store, applying any pending
// schema migrations first.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Migrate applies the embedded schema migrations to db.
func Migrate(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("while loading embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("while preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("while preparing migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("while applying migrations: %w", err)
	}
	return nil
}

// Load returns all annotations stored for the annotator.
func (s *SQLiteStore) Load(ctx context.Context, annotatorID string) ([]domain.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT sample_id, anomaly_presence, type_correctness, localization_score, grounded_reasoning, timestamp
FROM annotations WHERE annotator_id = ? ORDER BY sample_id
	`, annotatorID)
	if err != nil {
		return nil, fmt.Errorf("while querying annotations for '%s': %w", annotatorID, err)
	}
	defer rows.Close()

	var annotations []domain.Annotation
	for rows.Next() {
		ann := domain.Annotation{AnnotatorID: annotatorID}
		var score int
		err := rows.Scan(&ann.SampleID, &ann.AnomalyPresence, &ann.TypeCorrectness, &score, &ann.GroundedReasoning, &ann.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("while scanning annotation row: %w", err)
		}
		ann.LocalizationScore = domain.Score(score)
		annotations = append(annotations, ann)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("while reading annotations for '%s': %w", annotatorID, err)
	}
	return annotations, nil
}

// SaveAll atomically replaces the annotator's persisted set.
func (s *SQLiteStore) SaveAll(ctx context.Context, annotatorID string, annotations []domain.Annotation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("while starting save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM annotations WHERE annotator_id = ?", annotatorID); err != nil {
		return fmt.Errorf("while clearing previous annotations for '%s': %w", annotatorID, err)
	}

	for _, ann := range annotations {
		_, err := tx.ExecContext(ctx, `
INSERT INTO annotations (annotator_id, sample_id, anomaly_presence, type_correctness, localization_score, grounded_reasoning, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?)
		`, annotatorID, ann.SampleID, ann.AnomalyPresence, ann.TypeCorrectness, int(ann.LocalizationScore), ann.GroundedReasoning, ann.Timestamp)
		if err != nil {
			return fmt.Errorf("while inserting annotation for sample '%s': %w", ann.SampleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("while committing annotations for '%s': %w", annotatorID, err)
	}
	return nil
}

// ListAnnotators returns the annotator ids with at least one stored
// annotation, sorted.
func (s *SQLiteStore) ListAnnotators(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT annotator_id FROM annotations ORDER BY annotator_id")
	if err != nil {
		return nil, fmt.Errorf("while listing annotators: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("while scanning annotator id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ domain.AnnotationStore = (*SQLiteStore)(nil)
