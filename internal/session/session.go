// Package session implements the annotation workflow for one annotator:
// building the residual work queue, tracking the cursor and answer
// buffer, and the review-then-commit step that makes the buffer durable.
//
// A session is strictly sequential: callers must not run two operations
// concurrently. Saves only mutate the in-memory buffer; nothing touches
// the store until Commit, so an interrupted session can lose unsaved
// progress but never corrupt what was already persisted.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/lewtec/veredito/internal/domain"
)

// Mode is the session's position in its lifecycle.
type Mode int

const (
	ModeAnnotating Mode = iota
	ModeReviewing
	ModeCommitted
)

func (m Mode) String() string {
	switch m {
	case ModeAnnotating:
		return "annotating"
	case ModeReviewing:
		return "reviewing"
	case ModeCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyQueue signals that no sample is pending. Callers treat a
	// queue that was already empty at build time as immediate success.
	ErrEmptyQueue = errors.New("annotation queue is empty")

	// ErrNotAnnotating rejects a save outside annotating mode.
	ErrNotAnnotating = errors.New("session is not in annotating mode")

	// ErrNotReviewing rejects a commit outside reviewing mode.
	ErrNotReviewing = errors.New("session is not in reviewing mode")

	// ErrCommitted rejects any operation on a committed session.
	ErrCommitted = errors.New("session has already been committed")
)

// StoreWriteError wraps a failed durable write at the commit boundary.
// The session stays in reviewing mode so the commit can be retried.
type StoreWriteError struct {
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("while committing annotations: %s", e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// Session holds one annotator's in-flight annotation state.
type Session struct {
	annotatorID string
	queue       []domain.Sample
	total       int
	cursor      int
	buffer      map[string]domain.Annotation
	mode        Mode
	store       domain.AnnotationStore
	now         func() time.Time
}

// Build constructs the session for an annotator: the queue is the
// catalog minus the samples already answered in the store, permuted
// once; the buffer is seeded with the stored answers. The permutation
// happens here and only here, never again for the session's lifetime.
func Build(ctx context.Context, annotatorID string, catalog domain.CatalogLoader, store domain.AnnotationStore) (*Session, error) {
	if annotatorID == "" {
		return nil, fmt.Errorf("annotator id must not be empty")
	}

	samples, err := catalog.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("while loading the sample catalog: %w", err)
	}

	existing, err := store.Load(ctx, annotatorID)
	if err != nil {
		return nil, fmt.Errorf("while loading existing annotations for '%s': %w", annotatorID, err)
	}

	buffer := make(map[string]domain.Annotation, len(existing))
	for _, ann := range existing {
		buffer[ann.SampleID] = ann
	}

	var queue []domain.Sample
	for _, sample := range samples {
		if _, answered := buffer[sample.ID]; !answered {
			queue = append(queue, sample)
		}
	}
	rand.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})

	mode := ModeAnnotating
	if len(queue) == 0 {
		// Fully answered catalog on resume: straight to review.
		mode = ModeReviewing
	}

	return &Session{
		annotatorID: annotatorID,
		queue:       queue,
		total:       len(samples),
		buffer:      buffer,
		mode:        mode,
		store:       store,
		now:         time.Now,
	}, nil
}

// AnnotatorID returns the annotator this session belongs to.
func (s *Session) AnnotatorID() string { return s.annotatorID }

// Mode returns the session's current mode.
func (s *Session) Mode() Mode { return s.mode }

// Current returns the sample under the cursor.
func (s *Session) Current() (domain.Sample, error) {
	if len(s.queue) == 0 {
		return domain.Sample{}, ErrEmptyQueue
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	if s.cursor > len(s.queue)-1 {
		s.cursor = len(s.queue) - 1
	}
	return s.queue[s.cursor], nil
}

// CurrentDraft returns the form values for the current sample: the
// buffered answer when one exists, otherwise the defaults. Defaults are
// only ever form pre-population; they are not counted until saved.
func (s *Session) CurrentDraft() (domain.Draft, error) {
	sample, err := s.Current()
	if err != nil {
		return domain.Draft{}, err
	}
	if ann, ok := s.buffer[sample.ID]; ok {
		return domain.DraftOf(ann), nil
	}
	return domain.DefaultDraft(), nil
}

// Save validates the draft against the current sample, stamps it with
// the current UTC time, overwrites the buffer entry, and advances the
// cursor; saving the last queue item switches the session to reviewing.
// The store is not touched. A validation failure mutates nothing.
func (s *Session) Save(draft domain.Draft) error {
	switch s.mode {
	case ModeCommitted:
		return ErrCommitted
	case ModeReviewing:
		return ErrNotAnnotating
	}

	sample, err := s.Current()
	if err != nil {
		return err
	}
	if err := domain.ValidateDraft(draft, sample.HasAnomaly()); err != nil {
		return err
	}

	s.buffer[sample.ID] = draft.Annotation(sample, s.annotatorID, s.now())

	if s.cursor < len(s.queue)-1 {
		s.cursor++
	} else {
		s.mode = ModeReviewing
	}
	return nil
}

// Back moves the cursor one sample back. At the start of the queue it
// is a no-op, never an error. The buffer is untouched either way.
func (s *Session) Back() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// Progress returns how many samples have an answer in the buffer and
// the size of the full catalog. The denominator is fixed at build time
// so the displayed progress is stable while the queue shrinks.
func (s *Session) Progress() (completed, total int) {
	return len(s.buffer), s.total
}

// Position returns the cursor index and the queue length.
func (s *Session) Position() (index, queued int) {
	return s.cursor, len(s.queue)
}

// ReviewItem is one row of the review listing.
type ReviewItem struct {
	Index     int
	Sample    domain.Sample
	HasAnswer bool
}

// Review lists the queue in its fixed order with a flag for entries
// that still lack a buffered answer. Samples answered before the
// session began never entered the queue and do not appear here.
func (s *Session) Review() []ReviewItem {
	items := make([]ReviewItem, len(s.queue))
	for i, sample := range s.queue {
		_, answered := s.buffer[sample.ID]
		items[i] = ReviewItem{Index: i, Sample: sample, HasAnswer: answered}
	}
	return items
}

// SelectForEdit jumps back into annotating mode at the given queue
// index. Outside reviewing mode, or with an out-of-range index, it is
// a forgiving no-op.
func (s *Session) SelectForEdit(index int) {
	if s.mode != ModeReviewing {
		return
	}
	if index < 0 || index >= len(s.queue) {
		return
	}
	s.cursor = index
	s.mode = ModeAnnotating
}

// Commit writes the full buffer to the store in one atomic call and
// ends the session. Buffered answers are persisted even for samples
// the reviewer left unanswered elsewhere; unanswered samples are simply
// absent from the set. On a store failure the session stays in
// reviewing mode so the commit can be retried.
func (s *Session) Commit(ctx context.Context) (int, error) {
	switch s.mode {
	case ModeCommitted:
		return 0, ErrCommitted
	case ModeAnnotating:
		return 0, ErrNotReviewing
	}

	annotations := make([]domain.Annotation, 0, len(s.buffer))
	for _, ann := range s.buffer {
		annotations = append(annotations, ann)
	}
	sort.Slice(annotations, func(i, j int) bool {
		return annotations[i].SampleID < annotations[j].SampleID
	})

	if err := s.store.SaveAll(ctx, s.annotatorID, annotations); err != nil {
		return 0, &StoreWriteError{Err: err}
	}

	s.mode = ModeCommitted
	return len(annotations), nil
}
