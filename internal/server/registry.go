package server

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lewtec/veredito/internal/domain"
	"github.com/lewtec/veredito/internal/session"
)

// Registry owns the live sessions, one per annotator. A session is
// built on first access and reused afterwards, so the queue permutation
// happens exactly once per resume. Operations on a session serialize on
// its lock: the workflow is strictly sequential per annotator.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry

	catalog domain.CatalogLoader
	store   domain.AnnotationStore
}

type registryEntry struct {
	id      string
	mu      sync.Mutex
	session *session.Session
}

// NewRegistry creates an empty session registry.
func NewRegistry(catalog domain.CatalogLoader, store domain.AnnotationStore) *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		catalog: catalog,
		store:   store,
	}
}

// With runs fn against the annotator's session, building it first if
// this is the annotator's first request. fn receives the server-side
// session id alongside the session and runs under the session's lock.
func (r *Registry) With(ctx context.Context, annotatorID string, fn func(sessionID string, s *session.Session) error) error {
	r.mu.Lock()
	entry, ok := r.entries[annotatorID]
	if !ok {
		s, err := session.Build(ctx, annotatorID, r.catalog, r.store)
		if err != nil {
			r.mu.Unlock()
			return err
		}
		entry = &registryEntry{id: uuid.NewString(), session: s}
		r.entries[annotatorID] = entry
	}
	r.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.id, entry.session)
}

// Drop discards the annotator's session. Called after a successful
// commit: the session is terminal and its in-memory state goes away.
func (r *Registry) Drop(annotatorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, annotatorID)
}
