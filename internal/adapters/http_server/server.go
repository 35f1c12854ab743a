package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Server struct {
	mux         *chi.Mux
	timeout     time.Duration
	longTimeout time.Duration
}

// New builds the router. timeout bounds ordinary requests; longTimeout bounds
// routes that fan out to the model or the scrape source.
func New(timeout, longTimeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if longTimeout < timeout {
		longTimeout = timeout
	}
	m := chi.NewRouter()

	// All middlewares go here (before any routes are added)
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(chimw.Recoverer)
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	return &Server{mux: m, timeout: timeout, longTimeout: longTimeout}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches any extra handler (e.g., /metrics) to the router.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
