// Package http exposes the orchestrator over a JSON REST API with chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/internal/logging"
	"github.com/aretw0/stateflow/internal/presentation/graph"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Service defines the orchestrator operations the API needs.
type Service interface {
	CreateDefinition(ctx context.Context, req service.CreateDefinitionRequest) (*domain.Definition, error)
	GetDefinition(ctx context.Context, id string) (*domain.Definition, error)
	ListDefinitions(ctx context.Context) ([]*domain.Definition, error)
	StartInstance(ctx context.Context, definitionID string) (*domain.Instance, error)
	GetInstance(ctx context.Context, id string) (*domain.Instance, error)
	ListInstances(ctx context.Context) ([]*domain.Instance, error)
	ListInstancesByDefinition(ctx context.Context, definitionID string) ([]*domain.Instance, error)
	ExecuteAction(ctx context.Context, instanceID, actionName string) (*domain.Instance, error)
	ValidateActionExecution(ctx context.Context, instanceID, actionID string) (domain.ValidationResult, error)
}

// Server holds the handlers' dependencies.
type Server struct {
	svc      Service
	streams  *StreamManager
	metrics  http.Handler
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager whose Hooks are registered on the service.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.streams = streams
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger configures request and error logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the orchestrator.
func NewHandler(svc Service, opts ...Option) http.Handler {
	s := &Server{
		svc:      svc,
		logger:   logging.NewNop(),
		validate: newValidator(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}
	return enableCORS(s.routes())
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.getInfo)
	r.Get("/health", s.getHealth)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(RawSpec())
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/definitions", func(r chi.Router) {
		r.Post("/", s.createDefinition)
		r.Get("/", s.listDefinitions)
		r.Get("/{id}", s.getDefinition)
		r.Get("/{id}/instances", s.listInstancesByDefinition)
		r.Get("/{id}/graph", s.getDefinitionGraph)
	})

	r.Route("/api/instances", func(r chi.Router) {
		r.Post("/", s.startInstance)
		r.Get("/", s.listInstances)
		r.Get("/{id}", s.getInstance)
		r.Post("/{id}/execute", s.executeAction)
		r.Get("/{id}/validate", s.validateAction)
		r.Get("/{id}/events", s.subscribeEvents)
	})

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// decode reads a JSON body into dst and validates it. It writes the problem itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, r, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			badRequest(w, r, "Validation failed", fieldErrors(verrs)...)
			return false
		}
		badRequest(w, r, err.Error())
		return false
	}
	return true
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if doc, err := GetSpec(); err == nil && doc.Info != nil {
		apiVersion = doc.Info.Version
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "stateflow workflow engine API",
		"version":     strings.TrimSpace(stateflow.Version),
		"api_version": apiVersion,
		"endpoints": map[string]any{
			"definitions": map[string]string{
				"create":    "POST /api/definitions",
				"get":       "GET /api/definitions/{id}",
				"list":      "GET /api/definitions",
				"graph":     "GET /api/definitions/{id}/graph?instanceId={instanceId}",
				"instances": "GET /api/definitions/{definitionId}/instances",
			},
			"instances": map[string]string{
				"create":   "POST /api/instances?definitionId={definitionId}",
				"get":      "GET /api/instances/{id}",
				"list":     "GET /api/instances",
				"execute":  "POST /api/instances/{id}/execute",
				"validate": "GET /api/instances/{id}/validate?actionId={actionId}",
				"events":   "GET /api/instances/{id}/events",
			},
		},
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now(),
	})
}

func (s *Server) createDefinition(w http.ResponseWriter, r *http.Request) {
	var body createDefinitionRequest
	if !s.decode(w, r, &body) {
		return
	}

	def, err := s.svc.CreateDefinition(r.Context(), body.toService())
	if err != nil {
		s.handleServiceError(w, r, err, http.StatusBadRequest)
		return
	}

	w.Header().Set("Location", "/api/definitions/"+def.ID)
	writeData(w, http.StatusCreated, def)
}

func (s *Server) getDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := s.svc.GetDefinition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleServiceError(w, r, err, http.StatusNotFound)
		return
	}
	writeData(w, http.StatusOK, def)
}

func (s *Server) listDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := s.svc.ListDefinitions(r.Context())
	if err != nil {
		s.handleServiceError(w, r, err, http.StatusNotFound)
		return
	}
	writeData(w, http.StatusOK, defs)
}

func (s *Server) getDefinitionGraph(w http.ResponseWriter, r *http.Request) {
	def, err := s.svc.GetDefinition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleServiceError(w, r, err, http.StatusNotFound)
		return
	}

	var overlay *graph.GraphOverlay
	if instanceID := r.URL.Query().Get("instanceId"); instanceID != "" {
		inst, err := s.svc.GetInstance(r.Context(), instanceID)
		if err != nil {
			s.handleServiceError(w, r, err, http.StatusNotFound)
			return
		}
		if inst.DefinitionID != def.ID {
			badRequest(w, r, "Instance '"+inst.ID+"' does not belong to definition '"+def.ID+"'")
			return
		}
		overlay = graph.OverlayFor(inst)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(def, overlay)))
}

func (s *Server) startInstance(w http.ResponseWriter, r *http.Request) {
	definitionID := r.URL.Query().Get("definitionId")
	if definitionID == "" {
		badRequest(w, r, "Query parameter 'definitionId' is required")
		return
	}

	inst, err := s.svc.StartInstance(r.Context(), definitionID)
	if err != nil {
		s.handleServiceError(w, r, err, http.StatusBadRequest)
		return
	}

	w.Header().Set("Location", "/api/instances/"+inst.ID)
	writeData(w, http.StatusCreated, inst)
}

func (s *Server) getInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := s.svc.GetInstance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleServiceError(w, r, err, http.StatusNotFound)
		return
	}
	writeData(w, http.StatusOK, inst)
}

func (s *Server) listInstances(w http.ResponseWriter, r *http.Request) {
	insts, err := s.svc.ListInstances(r.Context())
	if err != nil {
		s.handleServiceError(w, r, err, http.StatusNotFound)
		return
	}
	writeData(w, http.StatusOK, insts)
}

func (s *Server) listInstancesByDefinition(w http.ResponseWriter, r *http.Request) {
	insts, err := s.svc.ListInstancesByDefinition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleServiceError(w, r, err, http.StatusNotFound)
		return
	}
	writeData(w, http.StatusOK, insts)
}

func (s *Server) executeAction(w http.ResponseWriter, r *http.Request) {
	var body executeActionRequest
	if !s.decode(w, r, &body) {
		return
	}

	inst, err := s.svc.ExecuteAction(r.Context(), chi.URLParam(r, "id"), body.ActionName)
	if err != nil {
		s.handleServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeData(w, http.StatusOK, inst)
}

func (s *Server) validateAction(w http.ResponseWriter, r *http.Request) {
	actionID := r.URL.Query().Get("actionId")
	if actionID == "" {
		badRequest(w, r, "Query parameter 'actionId' is required")
		return
	}

	result, err := s.svc.ValidateActionExecution(r.Context(), chi.URLParam(r, "id"), actionID)
	if err != nil {
		s.handleServiceError(w, r, err, http.StatusNotFound)
		return
	}
	writeData(w, http.StatusOK, result)
}
