package router

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Route names registered on the UI router
const (
	RouteLanding   = "landing"
	RouteShorten   = "shorten"
	RouteLogin     = "login"
	RouteRegister  = "register"
	RouteLogout    = "logout"
	RouteMetrics   = "metrics"
	RouteDashboard = "dashboard"
	RouteCreate    = "create-link"
	RouteToggle    = "toggle-link"
)

// OwnerVar is the path variable naming the dashboard owner
const OwnerVar = "username"

// Guards adapts the guard predicates to HTTP middleware
type Guards struct {
	state       SessionState
	placeholder http.Handler
}

// NewGuards creates guards reading state; placeholder renders while the
// initial session check is in flight (nil uses a plain "Loading" page)
func NewGuards(state SessionState, placeholder http.Handler) *Guards {
	if placeholder == nil {
		placeholder = http.HandlerFunc(loadingPage)
	}
	return &Guards{state: state, placeholder: placeholder}
}

// RequireGuest wraps next with the guest-only guard
func (g *Guards) RequireGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.apply(w, r, GuestOnly(g.state), next)
	})
}

// RequireUser wraps next with the user-only guard; the owner is the
// {username} path variable
func (g *Guards) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.apply(w, r, UserOnly(g.state, mux.Vars(r)[OwnerVar]), next)
	})
}

func (g *Guards) apply(w http.ResponseWriter, r *http.Request, d Decision, next http.Handler) {
	switch d.Outcome {
	case Redirect:
		http.Redirect(w, r, d.Location, http.StatusSeeOther)
	case Placeholder:
		w.Header().Set("Retry-After", "1")
		g.placeholder.ServeHTTP(w, r)
	default:
		next.ServeHTTP(w, r)
	}
}

func loadingPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	w.Write([]byte("Loading..."))
}
