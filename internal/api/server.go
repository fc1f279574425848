// Package api exposes the operator HTTP interface for the pipeline.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hossagent/leadscout/internal/discovery"
	"github.com/hossagent/leadscout/internal/guard"
	"github.com/hossagent/leadscout/internal/lead"
	"github.com/hossagent/leadscout/internal/metrics"
)

// SignalProcessor ingests a signal and opens a lead event when it
// qualifies.
type SignalProcessor interface {
	ProcessSignal(ctx context.Context, sig lead.Signal) (lead.ScoredSignal, *lead.LeadEvent, error)
}

// StatusReporter exposes engine counters for operator tooling.
type StatusReporter interface {
	Status() discovery.EngineStatus
}

// Server wires HTTP handlers to the orchestrator, store and guard.
type Server struct {
	router    chi.Router
	processor SignalProcessor
	store     lead.Store
	guard     *guard.Guard
	engines   []StatusReporter
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	processor SignalProcessor,
	store lead.Store,
	g *guard.Guard,
	engines []StatusReporter,
	logger *zap.Logger,
) *Server {
	s := &Server{
		processor: processor,
		store:     store,
		guard:     g,
		engines:   engines,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/signals", s.ingestSignal)
		r.Get("/leads/{lead_id}", s.getLeadEvent)
		r.Get("/engines/status", s.engineStatus)
		r.Get("/guards", s.guardStatus)
		r.Post("/guards/{dependency}/reset", s.resetGuard)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type signalRequest struct {
	SourceType string `json:"source_type"`
	Summary    string `json:"summary"`
	SourceURL  string `json:"source_url"`
	Geography  string `json:"geography"`
	Niche      string `json:"niche"`
}

type signalResponse struct {
	SignalID    string  `json:"signal_id"`
	Score       float64 `json:"score"`
	Category    string  `json:"category"`
	Qualifies   bool    `json:"qualifies"`
	LeadEventID string  `json:"lead_event_id,omitempty"`
}

func (s *Server) ingestSignal(w http.ResponseWriter, r *http.Request) {
	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Summary == "" {
		s.writeError(w, http.StatusBadRequest, "summary is required")
		return
	}

	scored, ev, err := s.processor.ProcessSignal(r.Context(), lead.Signal{
		SourceType: req.SourceType,
		Summary:    req.Summary,
		SourceURL:  req.SourceURL,
		Geography:  req.Geography,
		Niche:      req.Niche,
	})
	if err != nil {
		s.logger.Error("signal ingestion failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "signal ingestion failed")
		return
	}

	resp := signalResponse{
		SignalID:  scored.Signal.ID,
		Score:     scored.Score,
		Category:  scored.Category,
		Qualifies: scored.Qualifies,
	}
	if ev != nil {
		resp.LeadEventID = ev.ID
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) getLeadEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "lead_id")
	ev, err := s.store.GetLeadEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "lead event not found")
			return
		}
		s.logger.Error("lead event lookup failed", zap.String("lead_event_id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "lead event lookup failed")
		return
	}
	s.writeJSON(w, http.StatusOK, ev)
}

func (s *Server) engineStatus(w http.ResponseWriter, _ *http.Request) {
	statuses := make([]discovery.EngineStatus, 0, len(s.engines))
	for _, e := range s.engines {
		statuses = append(statuses, e.Status())
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"engines": statuses})
}

func (s *Server) guardStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"dependencies": s.guard.StatusAll()})
}

func (s *Server) resetGuard(w http.ResponseWriter, r *http.Request) {
	dependency := chi.URLParam(r, "dependency")
	s.guard.Reset(dependency)
	s.logger.Info("circuit manually reset", zap.String("dependency", dependency))
	s.writeJSON(w, http.StatusOK, map[string]string{"dependency": dependency, "status": "reset"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
