package server

import (
	"log"
	"net/http"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	annotators, err := s.store.ListAnnotators(r.Context())
	if err != nil {
		log.Printf("error: http: while listing annotators: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	err = renderPage(w, "index.html", map[string]any{
		"Title":       "veredito",
		"Description": s.description,
		"Annotators":  annotators,
		"Samples":     len(s.sampleIndex),
	})
	if err != nil {
		log.Printf("error: http: while rendering index page: %s", err)
	}
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	err := renderPage(w, "help.html", map[string]any{
		"Title":       "Help",
		"Description": s.description,
	})
	if err != nil {
		log.Printf("error: http: while rendering help page: %s", err)
	}
}
