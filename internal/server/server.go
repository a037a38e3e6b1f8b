// Package server provides the HTTP API for the hiring pipeline.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-pipeline/internal/events"
	"github.com/jonathan/hiring-pipeline/internal/logging"
	"github.com/jonathan/hiring-pipeline/internal/pipeline"
	"github.com/jonathan/hiring-pipeline/internal/server/middleware"
)

const maxBodyBytes = 1 << 20

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Port int
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Engine       *pipeline.Engine
	Orchestrator *pipeline.Orchestrator
	Hub          *events.Hub
	Tokens       *JWTService
	Health       Pinger
	Logger       *logging.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	engine     *pipeline.Engine
	orch       *pipeline.Orchestrator
	hub        *events.Hub
	tokens     *JWTService
	health     Pinger
	log        *logging.Logger
	handler    http.Handler
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Engine == nil || deps.Orchestrator == nil {
		return nil, fmt.Errorf("engine and orchestrator are required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if deps.Hub == nil {
		deps.Hub = events.NewHub(0)
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}

	s := &Server{
		engine: deps.Engine,
		orch:   deps.Orchestrator,
		hub:    deps.Hub,
		tokens: deps.Tokens,
		health: deps.Health,
		log:    deps.Logger.With("component", "http"),
	}

	auth := middleware.AuthMiddleware(deps.Tokens.AsTokenValidator())
	staff := func(h http.HandlerFunc) http.Handler {
		return auth(middleware.RequireRole(h, middleware.RoleRecruiter))
	}
	anyone := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return auth(middleware.RequireRole(h, middleware.RoleAdmin))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Applications
	mux.Handle("POST /applications", anyone(s.handleSubmitApplication))
	mux.Handle("GET /applications", staff(s.handleListApplications))
	mux.Handle("GET /applications/{id}", anyone(s.handleGetApplication))
	mux.Handle("PUT /applications/{id}/assignee", staff(s.handleAssignRecruiter))
	mux.Handle("POST /applications/{id}/invitation", staff(s.handleSendInvitation))
	mux.Handle("POST /applications/{id}/business-case", auth(middleware.RequireRole(s.handleSubmitBusinessCase, middleware.RoleCandidate)))

	// Review
	mux.Handle("POST /applications/{id}/review/begin", staff(s.handleBeginReview))
	mux.Handle("GET /applications/{id}/review", staff(s.handleGetReview))
	mux.Handle("PUT /applications/{id}/review/flags/{flag}", staff(s.handleSetReviewFlag))
	mux.Handle("POST /applications/{id}/review/complete", staff(s.handleCompleteReview))

	// Analyses and evaluation
	mux.Handle("POST /applications/{id}/analyses", staff(s.handleRequestAnalysis))
	mux.Handle("POST /applications/{id}/analyses/documents", staff(s.handleAnalyzeDocuments))
	mux.Handle("GET /applications/{id}/analyses", staff(s.handleListAnalyses))
	mux.Handle("GET /applications/{id}/analyses/{kind}", staff(s.handleGetAnalysis))
	mux.Handle("POST /applications/{id}/evaluation", staff(s.handleRequestEvaluation))
	mux.Handle("GET /applications/{id}/evaluation", staff(s.handleGetEvaluation))

	// Interviews
	mux.Handle("POST /applications/{id}/interviews", staff(s.handleScheduleInterview))
	mux.Handle("GET /applications/{id}/interviews", anyone(s.handleListInterviews))
	mux.Handle("POST /interviews/{id}/reschedule", staff(s.handleRescheduleInterview))
	mux.Handle("POST /interviews/{id}/cancel", staff(s.handleCancelInterview))
	mux.Handle("POST /interviews/{id}/complete", staff(s.handleCompleteInterview))
	mux.Handle("GET /interviews/{id}/history", staff(s.handleInterviewHistory))

	// Decisions and notifications
	mux.Handle("POST /applications/{id}/decisions", staff(s.handleRecordDecision))
	mux.Handle("GET /applications/{id}/decisions", staff(s.handleListDecisions))
	mux.Handle("GET /applications/{id}/notifications", staff(s.handleListNotifications))
	mux.Handle("POST /applications/{id}/notifications/{type}/resend", staff(s.handleResendNotification))

	// Operator actions
	mux.Handle("POST /admin/applications/{id}/analyses/{kind}/reset", admin(s.handleResetAnalysis))
	mux.Handle("POST /admin/applications/{id}/evaluation/reset", admin(s.handleResetEvaluation))

	// Change stream
	mux.Handle("GET /events", staff(s.handleEvents))

	s.handler = s.withLogging(s.withCORS(mux))
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // Synchronous inference calls; the event stream clears it
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Event streams only end when their subscription closes
	s.hub.Close()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.orch.Wait()
	s.log.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for access logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("error encoding JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err to a status and writes it. Storage and other unexpected errors
// are logged and reported opaquely.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.errorResponse(w, status, "internal server error")
		return
	}
	body := map[string]string{"error": err.Error()}
	if code := errorCode(err); code != "" {
		body["code"] = code
	}
	s.jsonResponse(w, status, body)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &errBadRequest{Message: "invalid " + name}
	}
	return id, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &errBadRequest{Message: "invalid " + name}
	}
	return &id, nil
}

// parseQueryInt reads a non-negative integer query value, capped at maxValue
// when maxValue is positive.
func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val < 0 {
		return defaultValue
	}
	if maxValue > 0 && val > maxValue {
		return maxValue
	}
	return val
}

// decodeJSON decodes the request body into dst. An empty body is accepted
// unless required is set.
func decodeJSON(r *http.Request, dst any, required bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && !required {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return &errBadRequest{Message: "request body is required"}
		}
		return &errBadRequest{Message: "invalid request body: " + err.Error()}
	}
	return nil
}

func actorOf(r *http.Request) middleware.Actor {
	actor, _ := middleware.GetActor(r)
	return actor
}

// wantsSync reports whether the caller asked to wait for the result.
func wantsSync(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	return v
}
