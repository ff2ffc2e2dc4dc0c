// Package httpapi serves the survey page flow over plain net/http: intake
// form, consent checklist, paginated rating loop, completion download, plus
// the operational endpoints.
package httpapi

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"surveycore/internal/core"
)

// Server owns the HTTP surface of the survey.
type Server struct {
	svc      *core.Service
	sessions *sessionRegistry
	logger   core.Logger
	tmpl     *template.Template
	server   *http.Server
}

// NewServer wires the handler routes around the survey service. logger may
// be nil.
func NewServer(addr string, svc *core.Service, logger core.Logger) *Server {
	s := &Server{
		svc:      svc,
		sessions: newSessionRegistry(),
		logger:   logger,
		tmpl:     parseTemplates(),
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIntakeForm)
	mux.HandleFunc("POST /{$}", s.handleIntakeSubmit)
	mux.HandleFunc("GET /consent", s.handleConsentForm)
	mux.HandleFunc("POST /consent", s.handleConsentSubmit)
	mux.HandleFunc("GET /survey", s.handleSurvey)
	mux.HandleFunc("POST /answer", s.handleAnswer)
	mux.HandleFunc("POST /pause", s.handlePause)
	mux.HandleFunc("GET /complete", s.handleComplete)
	mux.HandleFunc("GET /download", s.handleDownload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// ListenAndServe blocks serving requests until shutdown.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) logError(msg string, kv ...any) {
	if s.logger != nil {
		s.logger.Error(msg, kv...)
	}
}
