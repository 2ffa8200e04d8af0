package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshdurbin/goshort/internal/app"
	"github.com/joshdurbin/goshort/internal/router"
)

// Server represents the local web UI server
type Server struct {
	handler *Handler
	server  *http.Server
	addr    string
}

// NewServer creates a new UI server listening on addr
func NewServer(a *app.App, addr string, verbose bool) (*Server, error) {
	handler, err := NewHandler(a)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      NewRouter(a, handler, verbose),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		handler: handler,
		server:  server,
		addr:    addr,
	}, nil
}

// NewRouter builds the route table. Fixed paths are registered before the
// /{username} dashboard so they win.
func NewRouter(a *app.App, handler *Handler, verbose bool) http.Handler {
	guards := router.NewGuards(a.Sessions, http.HandlerFunc(handler.Loading))

	r := mux.NewRouter()
	r.HandleFunc("/", handler.Landing).Methods(http.MethodGet).Name(router.RouteLanding)
	r.HandleFunc("/shorten", handler.Shorten).Methods(http.MethodPost).Name(router.RouteShorten)
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet).Name(router.RouteMetrics)
	r.HandleFunc("/logout", handler.Logout).Methods(http.MethodPost).Name(router.RouteLogout)

	login := r.Path("/login").Subrouter()
	login.Use(guards.RequireGuest)
	login.HandleFunc("", handler.LoginPage).Methods(http.MethodGet).Name(router.RouteLogin)
	login.HandleFunc("", handler.Login).Methods(http.MethodPost)

	register := r.Path("/register").Subrouter()
	register.Use(guards.RequireGuest)
	register.HandleFunc("", handler.RegisterPage).Methods(http.MethodGet).Name(router.RouteRegister)
	register.HandleFunc("", handler.Register).Methods(http.MethodPost)

	user := r.PathPrefix("/{" + router.OwnerVar + "}").Subrouter()
	user.Use(guards.RequireUser)
	user.HandleFunc("", handler.Dashboard).Methods(http.MethodGet).Name(router.RouteDashboard)
	user.HandleFunc("/links", handler.CreateLink).Methods(http.MethodPost).Name(router.RouteCreate)
	user.HandleFunc("/links/{id}/status", handler.ToggleLink).Methods(http.MethodPost).Name(router.RouteToggle)

	var finalHandler http.Handler = r

	if verbose {
		loggingMiddleware := NewLoggingMiddleware(verbose)
		finalHandler = loggingMiddleware.Middleware(finalHandler)
	}

	return finalHandler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("UI listening on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("UI shutting down...")
	return s.server.Shutdown(ctx)
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the server handler (useful for testing)
func (s *Server) Handler() *Handler {
	return s.handler
}
