// Package diag implements a small read-only diagnostics HTTP endpoint:
// a single GET /status route. This daemon has no control surface to
// expose over HTTP, only observability.
package diag

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// StatusProvider is implemented by the Supervisor to report a point-in-
// time snapshot for the /status endpoint.
type StatusProvider interface {
	Status() Snapshot
}

// Snapshot is the JSON body served at /status.
type Snapshot struct {
	LEDMode      string            `json:"led_mode"`
	Buttons      map[string]string `json:"buttons"`
	Music        MusicSnapshot     `json:"music"`
	DiskPresent  bool              `json:"disk_present"`
}

// MusicSnapshot reports the music client's connection state and queue
// position.
type MusicSnapshot struct {
	Connected    bool `json:"connected"`
	QueueLength  int  `json:"queue_length"`
	CurrentIndex int  `json:"current_index"`
}

// Server is the diagnostics HTTP server.
type Server struct {
	listenAddr string
	provider   StatusProvider
	router     *chi.Mux
	httpServer *http.Server
}

// New builds a Server that will listen on listenAddr once Start is
// called.
func New(listenAddr string, provider StatusProvider) *Server {
	s := &Server{listenAddr: listenAddr, provider: provider}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))
	r.Get("/status", s.handleStatus)
	s.router = r

	return s
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.provider.Status())
}

// Start launches the HTTP server in a background goroutine, logging
// (not panicking) if it exits unexpectedly -- this endpoint is
// best-effort diagnostics, never load-bearing for the supervisor's core
// loop.
func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: s.router,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("diag: server exited: %v", err)
		}
	}()
}

// Shutdown gracefully stops the HTTP server, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
