package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vbonduro/wastecapture/internal/auth"
	"github.com/vbonduro/wastecapture/internal/capture"
	"github.com/vbonduro/wastecapture/internal/domain"
	"github.com/vbonduro/wastecapture/internal/photostore"
)

// itemRepository is the subset of the item stores that Server requires.
type itemRepository interface {
	List(ctx context.Context) []domain.CapturedItem
	Get(ctx context.Context, id string) (*domain.CapturedItem, error)
	Update(ctx context.Context, id string, u domain.ItemUpdate) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// WorkflowFactory builds the capture workflow for a newly signed-in operator.
type WorkflowFactory func() *capture.Workflow

type Server struct {
	items       itemRepository
	photoStore  photostore.PhotoStore
	sessions    *auth.Sessions
	newWorkflow WorkflowFactory
	router      chi.Router
	logger      *slog.Logger

	mu        sync.Mutex
	workflows map[string]*capture.Workflow
}

func NewServer(items itemRepository, ps photostore.PhotoStore, sessions *auth.Sessions, newWorkflow WorkflowFactory, logger *slog.Logger) *Server {
	s := &Server{
		items:       items,
		photoStore:  ps,
		sessions:    sessions,
		newWorkflow: newWorkflow,
		logger:      logger,
		workflows:   make(map[string]*capture.Workflow),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler { return requestLogger(s.logger, next) })
	r.Use(securityHeaders)

	r.Post("/login", s.handleLogin)
	r.Get("/location/format", s.handleFormatLocation)

	r.Group(func(r chi.Router) {
		r.Use(s.requireOperator)

		r.Post("/logout", s.handleLogout)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/permission", s.handlePermission)
			r.Post("/photo", s.handlePhoto)
			r.Post("/retake", s.handleEvent(capture.Retake{}))
			r.Post("/confirm", s.handleEvent(capture.Confirm{}))
			r.Post("/correct", s.handleEvent(capture.MarkCorrect{}))
			r.Post("/incorrect", s.handleEvent(capture.MarkIncorrect{}))
			r.Post("/cancel", s.handleEvent(capture.Cancel{}))
			r.Post("/reset", s.handleEvent(capture.Reset{}))
			r.Patch("/fields", s.handleFieldChanged)
			r.Post("/submit", s.handleSubmit)
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.Delete("/", s.handleClearItems)
			r.Get("/{id}", s.handleGetItem)
			r.Patch("/{id}", s.handleUpdateItem)
			r.Delete("/{id}", s.handleDeleteItem)
		})

		r.Get("/photos/{key}", s.handleGetPhoto)
	})
	return r
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"request_id", middleware.GetReqID(r.Context()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// Close stops every operator's in-flight capture work.
func (s *Server) Close() {
	s.mu.Lock()
	workflows := s.workflows
	s.workflows = make(map[string]*capture.Workflow)
	s.mu.Unlock()

	for _, wf := range workflows {
		wf.Close()
	}
}

// workflow returns the capture workflow bound to token, creating it on first
// use.
func (s *Server) workflow(token string) *capture.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[token]
	if !ok {
		wf = s.newWorkflow()
		s.workflows[token] = wf
	}
	return wf
}

func (s *Server) dropWorkflow(token string) {
	s.mu.Lock()
	wf, ok := s.workflows[token]
	delete(s.workflows, token)
	s.mu.Unlock()
	if ok {
		wf.Close()
	}
}
