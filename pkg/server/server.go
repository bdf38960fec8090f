// Package server exposes the skill catalog over a small JSON HTTP API:
// listing descriptors, loading bodies and direct references, and
// selecting skills for a request.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/jingkaihe/skillkit/pkg/hooks"
	"github.com/jingkaihe/skillkit/pkg/logger"
	"github.com/jingkaihe/skillkit/pkg/selector"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/pkg/errors"
)

// Config holds the listen address.
type Config struct {
	Host string
	Port int
}

// Validate checks the address.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Server serves the skills API.
type Server struct {
	router   *mux.Router
	loader   *skills.Loader
	selector *selector.Selector
	config   *Config
	server   *http.Server
}

// New returns a server reading from loader's catalog.
func New(config *Config, loader *skills.Loader, sel *selector.Selector) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		router:   mux.NewRouter(),
		loader:   loader,
		selector: sel,
		config:   config,
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/skills", s.handleListSkills).Methods(http.MethodGet)
	api.HandleFunc("/skills/{name:.+}/references", s.handleGetReference).Methods(http.MethodGet)
	api.HandleFunc("/skills/{name:.+}", s.handleGetSkill).Methods(http.MethodGet)
	api.HandleFunc("/select", s.handleSelect).Methods(http.MethodPost)
	api.HandleFunc("/hooks/schema", s.handleHookSchema).Methods(http.MethodGet)

	s.router.Use(s.loggingMiddleware)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// SkillSummary is the list view of a descriptor.
type SkillSummary struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	AllowedTools []string `json:"allowed_tools,omitempty"`
	HookEvents   []string `json:"hook_events,omitempty"`
	Context      string   `json:"context,omitempty"`
	License      string   `json:"license,omitempty"`
}

// SkillDetail adds the loaded body to a summary.
type SkillDetail struct {
	SkillSummary
	Body       string   `json:"body"`
	References []string `json:"references"`
}

// ReferenceResponse is one direct reference of a skill.
type ReferenceResponse struct {
	Skill   string   `json:"skill"`
	Path    string   `json:"path"`
	Content string   `json:"content"`
	Links   []string `json:"links"`
}

// SelectRequest is the body of POST /api/select.
type SelectRequest struct {
	Request string `json:"request"`
	Explain bool   `json:"explain,omitempty"`
}

// SelectResponse lists the matches for a request.
type SelectResponse struct {
	Matches []selector.Match `json:"matches"`
}

func summarize(d *skills.Descriptor) SkillSummary {
	events := make([]string, 0, len(d.Hooks))
	for event := range d.Hooks {
		events = append(events, string(event))
	}
	sort.Strings(events)

	return SkillSummary{
		Name:         d.Name,
		Description:  d.Description,
		AllowedTools: d.AllowedTools,
		HookEvents:   events,
		Context:      d.Context,
		License:      d.License,
	}
}

func (s *Server) handleListSkills(w http.ResponseWriter, _ *http.Request) {
	all := s.loader.Catalog().All()
	out := make([]SkillSummary, 0, len(all))
	for _, d := range all {
		out = append(out, summarize(d))
	}
	s.writeJSONResponse(w, out)
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	d, err := s.loader.Catalog().Lookup(name)
	if err != nil {
		s.writeSkillError(w, err)
		return
	}
	body, err := s.loader.Load(r.Context(), name)
	if err != nil {
		s.writeSkillError(w, err)
		return
	}

	s.writeJSONResponse(w, SkillDetail{
		SkillSummary: summarize(d),
		Body:         body.Content,
		References:   append([]string{}, body.References...),
	})
}

func (s *Server) handleGetReference(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	ref := r.URL.Query().Get("path")
	if ref == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "query parameter 'path' is required", nil)
		return
	}

	body, err := s.loader.Load(r.Context(), name)
	if err != nil {
		s.writeSkillError(w, err)
		return
	}
	doc, err := s.loader.ResolveReference(r.Context(), body, ref)
	if err != nil {
		s.writeSkillError(w, err)
		return
	}

	s.writeJSONResponse(w, ReferenceResponse{
		Skill:   doc.Skill,
		Path:    doc.Path,
		Content: doc.Content,
		Links:   append([]string{}, doc.Links...),
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	var matches []selector.Match
	if req.Explain {
		matches = s.selector.Explain(req.Request)
	} else {
		matches = s.selector.Select(r.Context(), req.Request)
	}
	if matches == nil {
		matches = []selector.Match{}
	}
	s.writeJSONResponse(w, SelectResponse{Matches: matches})
}

func (s *Server) handleHookSchema(w http.ResponseWriter, _ *http.Request) {
	schema, err := hooks.ResponseSchema()
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to build schema", err)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.Write(schema)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, skills.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, skills.ErrReferenceCycle):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeSkillError(w http.ResponseWriter, err error) {
	s.writeErrorResponse(w, statusFor(err), err.Error(), err)
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode JSON response")
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(context.TODO()).WithError(err).Warn(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"error":  message,
		"status": statusCode,
	}); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode error response")
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.G(ctx).WithField("address", address).Info("skills API listening")

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Stop closes the listener immediately.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
