// internal/server/server.go
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"workflow-submit/internal/common/logger"
	"workflow-submit/internal/common/observability"
	"workflow-submit/internal/orchestrator"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server hosts one submission dialog per task over HTTP.
type Server struct {
	config  *orchestrator.Config
	catalog orchestrator.Catalog
	obs     *observability.Observability
	logger  logger.Logger
	router  chi.Router

	mu      sync.Mutex
	dialogs map[string]*dialog
}

func New(config *orchestrator.Config, cat orchestrator.Catalog, obs *observability.Observability, log logger.Logger) *Server {
	s := &Server{
		config:  config,
		catalog: cat,
		obs:     obs,
		logger: log.WithFields(map[string]interface{}{
			"component": "http-host",
		}),
		dialogs: make(map[string]*dialog),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/tasks/{taskID}/dialog", func(r chi.Router) {
		r.Post("/", s.openDialog)
		r.Get("/", s.getDialog)
		r.Delete("/", s.cancelDialog)
		r.Post("/template", s.selectTemplate)
		r.Post("/parameters", s.setParameter)
		r.Post("/submit", s.requestSubmit)
		r.Post("/prompt/confirm", s.confirmPrompt)
		r.Post("/prompt/cancel", s.cancelPrompt)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	s.logger.Info("http host listening", map[string]interface{}{"address": addr})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// dialogFor returns the dialog of a task, creating it when create is set.
func (s *Server) dialogFor(taskID string, create bool) (*dialog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.dialogs[taskID]; ok {
		return d, true
	}
	if !create {
		return nil, false
	}
	d := &dialog{}
	d.orch = orchestrator.New(s.config, s.catalog, d, d, s.obs, s.logger)
	d.evict = func() { s.evict(taskID, d) }
	s.dialogs[taskID] = d
	return d, true
}

// evict removes d unless the task has been given a newer dialog.
func (s *Server) evict(taskID string, d *dialog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialogs[taskID] == d {
		delete(s.dialogs, taskID)
	}
}

func (s *Server) dialogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dialogs)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served", map[string]interface{}{
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"duration":  time.Since(start).String(),
			"requestId": middleware.GetReqID(r.Context()),
		})
	})
}
