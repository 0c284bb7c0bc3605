// Package server exposes the annotation workflow over HTTP: a JSON API
// for the session operations plus a couple of HTML pages and the raw
// sample assets.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/lewtec/veredito/internal/config"
	"github.com/lewtec/veredito/internal/domain"
	"github.com/lewtec/veredito/internal/session"
)

// Server wires the session registry, the loaded catalog, and the
// annotation store behind the HTTP surface.
type Server struct {
	registry    *Registry
	store       domain.AnnotationStore
	sampleIndex map[string]domain.Sample
	assetsRoot  string
	description string
}

// New creates a Server over an already loaded catalog. The catalog is
// fixed for the server's lifetime; every session sees the same samples.
func New(cfg *config.Config, store domain.AnnotationStore, catalog domain.CatalogLoader, samples []domain.Sample) *Server {
	index := make(map[string]domain.Sample, len(samples))
	for _, sample := range samples {
		index[sample.ID] = sample
	}
	return &Server{
		registry:    NewRegistry(catalog, store),
		store:       store,
		sampleIndex: index,
		assetsRoot:  cfg.AssetsRoot,
		description: cfg.Meta.Description,
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /session", s.handleSession)
	mux.HandleFunc("POST /session/save", s.handleSave)
	mux.HandleFunc("POST /session/back", s.handleBack)
	mux.HandleFunc("GET /session/review", s.handleReview)
	mux.HandleFunc("POST /session/review/select", s.handleReviewSelect)
	mux.HandleFunc("POST /session/commit", s.handleCommit)
	mux.HandleFunc("GET /asset/", s.handleAsset)
	mux.HandleFunc("GET /help", s.handleHelp)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	var handler http.Handler = mux
	handler = httpLogger(handler)
	return handler
}

type progressView struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type positionView struct {
	Index  int `json:"index"`
	Queued int `json:"queued"`
}

type sampleView struct {
	ID         string `json:"id"`
	HasAnomaly bool   `json:"has_anomaly"`
	ImageURL   string `json:"image_url"`
	VLMURL     string `json:"vlm_url"`
}

type sessionResponse struct {
	SessionID string        `json:"session_id"`
	Annotator string        `json:"annotator_id"`
	Mode      string        `json:"mode"`
	Sample    *sampleView   `json:"sample,omitempty"`
	Answer    *domain.Draft `json:"answer,omitempty"`
	Progress  progressView  `json:"progress"`
	Position  positionView  `json:"position"`
}

type saveRequest struct {
	Annotator         string       `json:"annotator"`
	AnomalyPresence   string       `json:"anomaly_presence"`
	TypeCorrectness   string       `json:"type_correctness"`
	LocalizationScore domain.Score `json:"localization_score"`
	GroundedReasoning int          `json:"grounded_reasoning"`
}

type annotatorRequest struct {
	Annotator string `json:"annotator"`
}

type selectRequest struct {
	Annotator string `json:"annotator"`
	Index     int    `json:"index"`
}

type reviewEntry struct {
	Index     int    `json:"index"`
	SampleID  string `json:"sample_id"`
	HasAnswer bool   `json:"has_answer"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error: http: while encoding response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeSessionError maps workflow errors onto HTTP statuses. Validation
// problems carry their field messages so the form can re-prompt.
func writeSessionError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "invalid annotation",
			"fields": verr.Fields,
		})
		return
	}
	switch {
	case errors.Is(err, session.ErrNotAnnotating),
		errors.Is(err, session.ErrNotReviewing),
		errors.Is(err, session.ErrCommitted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("error: http: %s", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("while decoding request body: %s", err))
		return false
	}
	return true
}

func (s *Server) sessionView(sessionID string, sess *session.Session) sessionResponse {
	completed, total := sess.Progress()
	index, queued := sess.Position()
	resp := sessionResponse{
		SessionID: sessionID,
		Annotator: sess.AnnotatorID(),
		Mode:      sess.Mode().String(),
		Progress:  progressView{Completed: completed, Total: total},
		Position:  positionView{Index: index, Queued: queued},
	}
	if sess.Mode() != session.ModeAnnotating {
		return resp
	}
	sample, err := sess.Current()
	if err != nil {
		return resp
	}
	resp.Sample = &sampleView{
		ID:         sample.ID,
		HasAnomaly: sample.HasAnomaly(),
		ImageURL:   fmt.Sprintf("/asset/%s/image", sample.ID),
		VLMURL:     fmt.Sprintf("/asset/%s/vlm", sample.ID),
	}
	if draft, err := sess.CurrentDraft(); err == nil {
		resp.Answer = &draft
	}
	return resp
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	annotator := r.URL.Query().Get("annotator")
	if annotator == "" {
		writeError(w, http.StatusBadRequest, "annotator query parameter is required")
		return
	}

	var resp sessionResponse
	err := s.registry.With(r.Context(), annotator, func(id string, sess *session.Session) error {
		resp = s.sessionView(id, sess)
		return nil
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Annotator == "" {
		writeError(w, http.StatusBadRequest, "annotator is required")
		return
	}

	draft := domain.Draft{
		AnomalyPresence:   req.AnomalyPresence,
		TypeCorrectness:   req.TypeCorrectness,
		LocalizationScore: req.LocalizationScore,
		GroundedReasoning: req.GroundedReasoning,
	}

	var resp sessionResponse
	err := s.registry.With(r.Context(), req.Annotator, func(id string, sess *session.Session) error {
		if err := sess.Save(draft); err != nil {
			return err
		}
		resp = s.sessionView(id, sess)
		return nil
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	var req annotatorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Annotator == "" {
		writeError(w, http.StatusBadRequest, "annotator is required")
		return
	}

	var resp sessionResponse
	err := s.registry.With(r.Context(), req.Annotator, func(id string, sess *session.Session) error {
		sess.Back()
		resp = s.sessionView(id, sess)
		return nil
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	annotator := r.URL.Query().Get("annotator")
	if annotator == "" {
		writeError(w, http.StatusBadRequest, "annotator query parameter is required")
		return
	}

	var entries []reviewEntry
	err := s.registry.With(r.Context(), annotator, func(id string, sess *session.Session) error {
		if sess.Mode() != session.ModeReviewing {
			return session.ErrNotReviewing
		}
		for _, item := range sess.Review() {
			entries = append(entries, reviewEntry{
				Index:     item.Index,
				SampleID:  item.Sample.ID,
				HasAnswer: item.HasAnswer,
			})
		}
		return nil
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if entries == nil {
		entries = []reviewEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleReviewSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Annotator == "" {
		writeError(w, http.StatusBadRequest, "annotator is required")
		return
	}

	var resp sessionResponse
	err := s.registry.With(r.Context(), req.Annotator, func(id string, sess *session.Session) error {
		sess.SelectForEdit(req.Index)
		resp = s.sessionView(id, sess)
		return nil
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req annotatorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Annotator == "" {
		writeError(w, http.StatusBadRequest, "annotator is required")
		return
	}

	var committed int
	err := s.registry.With(r.Context(), req.Annotator, func(id string, sess *session.Session) error {
		n, err := sess.Commit(r.Context())
		if err != nil {
			return err
		}
		committed = n
		return nil
	})
	if err != nil {
		// The session stays registered and in reviewing mode so the
		// commit can be retried.
		writeSessionError(w, err)
		return
	}

	s.registry.Drop(req.Annotator)
	log.Printf("session: annotator %s committed %d annotations", req.Annotator, committed)
	writeJSON(w, http.StatusOK, map[string]int{"committed": committed})
}

// handleAsset serves the raw resources a catalog entry points at:
// /asset/{sample_id}/image and /asset/{sample_id}/vlm.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path)
	if len(parts) != 3 {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	sample, ok := s.sampleIndex[parts[1]]
	if !ok {
		log.Printf("http: asset id %s was not found in the catalog", parts[1])
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}

	var name string
	switch parts[2] {
	case "image":
		name = sample.Image
	case "vlm":
		name = sample.VLMOutput
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	default:
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}

	f, err := os.Open(filepath.Join(s.assetsRoot, filepath.FromSlash(name)))
	if errors.Is(err, os.ErrNotExist) {
		http.NotFoundHandler().ServeHTTP(w, r)
		return
	}
	if err != nil {
		log.Printf("error: http: while serving asset for sample %s: %s", sample.ID, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer f.Close()
	io.Copy(w, f)
}

func pathParts(path string) []string {
	parts := strings.Split(path, "/")
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
