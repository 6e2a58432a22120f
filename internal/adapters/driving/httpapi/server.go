// Package httpapi exposes documents, chat and sessions over HTTP. Answers
// stream as server-sent events.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
	"github.com/custodia-labs/ragbot/internal/core/services"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// DefaultMaxUploadBytes bounds a multipart upload.
const DefaultMaxUploadBytes = 50 << 20

// Deps are the services behind the API.
type Deps struct {
	Documents    driving.DocumentService
	Chat         driving.ChatService
	Sessions     driving.SessionService
	Auth         driving.AuthService
	Conversation *services.Conversation

	// RequireAuth makes every /v1 request carry a bearer token checked by
	// Auth.Verify. Without it all requests run as the local user.
	RequireAuth bool

	MaxUploadBytes int64
}

// Handler serves the API.
type Handler struct {
	deps Deps
}

// NewRouter builds the chi router.
func NewRouter(deps Deps) http.Handler {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if deps.Conversation == nil && deps.Chat != nil && deps.Sessions != nil {
		deps.Conversation = services.NewConversation(deps.Chat, deps.Sessions)
	}
	h := &Handler{deps: deps}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", h.UploadDocuments)
			r.Get("/", h.ListDocuments)
			r.Get("/stats", h.DocumentStats)
			r.Delete("/{name}", h.DeleteDocument)
		})

		r.Post("/chat", h.Chat)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.DeleteSession)
				r.Get("/export", h.ExportSession)
			})
		})

		r.Delete("/data", h.ClearData)
	})

	return r
}

// Server runs the router until its context ends.
type Server struct {
	srv *http.Server
}

// NewServer creates a server on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	log.Info("shutting down HTTP server")
	return s.srv.Shutdown(shutdownCtx)
}
