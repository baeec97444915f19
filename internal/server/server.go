// Package server exposes pipeline checks over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pipecheck/internal/check"
	"pipecheck/internal/core"
	"pipecheck/internal/history"
	"pipecheck/pkg/utils"
)

// MaxBodyBytes caps the size of a submitted pipeline.
const MaxBodyBytes = 4 << 20

// Server keeps the reports of submitted pipelines in memory, keyed by the
// id handed out on submission. Ids derive from the document digest, so
// resubmitting a document, even after a restart, maps to the same id and
// artifact directory.
type Server struct {
	mu      sync.Mutex
	checker *check.Checker
	ledger  *history.Ledger
	reports map[string]check.Report
	logger  *slog.Logger
}

// SubmitResponse is returned by POST /pipelines and GET /pipelines/{id}.
type SubmitResponse struct {
	ID string `json:"id"`
	check.Report
}

// New returns a server. ledger may be nil, which disables the history
// endpoints.
func New(checker *check.Checker, ledger *history.Ledger, logger *slog.Logger) *Server {
	return &Server{
		checker: checker,
		ledger:  ledger,
		reports: make(map[string]check.Report),
		logger:  logger,
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/pipelines", func(r chi.Router) {
		r.Post("/", s.handleSubmitPipeline)
		r.Get("/{id}", s.handleGetPipeline)
		r.Get("/{id}/artifacts/{name}", s.handleGetArtifact)
	})
	r.Route("/history", func(r chi.Router) {
		r.Get("/", s.handleHistory)
		r.Get("/verify", s.handleVerifyHistory)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// POST /pipelines -> check a pipeline document
func (s *Server) handleSubmitPipeline(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "pipeline too large")
			return
		}
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	id := submissionID(data)
	res, err := s.checker.Check(id, data, requestFormat(r))
	if err != nil {
		s.logger.Error("check failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	report := res.Report()
	s.mu.Lock()
	s.reports[id] = report
	s.mu.Unlock()

	writeJSON(w, statusFor(res), SubmitResponse{ID: id, Report: report})
}

// GET /pipelines/{id}
func (s *Server) handleGetPipeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	report, ok := s.reports[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "pipeline not found")
		return
	}
	writeJSON(w, http.StatusOK, SubmitResponse{ID: id, Report: report})
}

// GET /pipelines/{id}/artifacts/{name}
func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	if s.checker.Storage == nil {
		writeError(w, http.StatusNotFound, "artifacts disabled")
		return
	}
	id, name := chi.URLParam(r, "id"), chi.URLParam(r, "name")
	s.mu.Lock()
	_, ok := s.reports[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "pipeline not found")
		return
	}
	data, err := s.checker.Storage.Load(id, name)
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, "artifact not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", artifactContentType(name))
	_, _ = w.Write(data)
}

// GET /history
func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "history disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Records())
}

// GET /history/verify -> recompute the chain
func (s *Server) handleVerifyHistory(w http.ResponseWriter, _ *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "history disabled")
		return
	}
	if err := s.ledger.Verify(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "broken", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": s.ledger.Len(), "head": s.ledger.LastHash()})
}

func submissionID(data []byte) string {
	return "p-" + utils.HashBytes(data)[:16]
}

func artifactContentType(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	}
	return "text/plain; charset=utf-8"
}

func requestFormat(r *http.Request) core.Format {
	if f := r.URL.Query().Get("format"); f != "" {
		if f == core.FormatJSONC.String() || f == "json" {
			return core.FormatJSONC
		}
		return core.FormatYAML
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		return core.FormatJSONC
	}
	return core.FormatYAML
}

func statusFor(res *check.Result) int {
	switch {
	case res.Passed():
		return http.StatusOK
	case res.Phase == check.PhaseParse:
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
