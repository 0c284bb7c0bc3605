package server

import (
	"log"
	"net/http"
	"time"
)

func httpLogger(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		initialTime := time.Now()
		recorder := newStatusRecorder(w)
		handler.ServeHTTP(recorder, r)
		elapsed := time.Since(initialTime)
		log.Printf("http: time:%dms %d %s %s", elapsed/time.Millisecond, recorder.status, r.Method, r.URL.String())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
