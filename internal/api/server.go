package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/eventrelay/internal/api/handler"
	mw "github.com/edvin/eventrelay/internal/api/middleware"
	"github.com/edvin/eventrelay/internal/api/response"
)

// Server is the local HTTP surface of `relayctl serve`: the OAuth bootstrap
// plus health and metrics.
type Server struct {
	router chi.Router
	logger zerolog.Logger
	auth   *handler.Auth
	reg    *prometheus.Registry
}

func NewServer(logger zerolog.Logger, auth *handler.Auth, reg *prometheus.Registry) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger,
		auth:   auth,
		reg:    reg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics(s.reg))
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Get("/login", s.auth.Login)
	s.router.Get("/callback", s.auth.Callback)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
