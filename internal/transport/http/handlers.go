package http

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joshdurbin/goshort/internal/app"
	"github.com/joshdurbin/goshort/internal/domain"
	"github.com/joshdurbin/goshort/internal/router"
	"github.com/joshdurbin/goshort/internal/session"
	"github.com/joshdurbin/goshort/internal/viewmodel"
)

// Handler holds the HTTP handlers for the local web UI
type Handler struct {
	app     *app.App
	pages   *renderer
	notices *viewmodel.Notices
	auth    *viewmodel.Auth
	landing *viewmodel.Landing

	mu         sync.Mutex
	dashboards map[string]*viewmodel.Dashboard
}

// NewHandler creates a new HTTP handler
func NewHandler(a *app.App) (*Handler, error) {
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}

	return &Handler{
		app:        a,
		pages:      pages,
		notices:    viewmodel.NewNotices(5),
		auth:       viewmodel.NewAuth(a.Client, a.Sessions),
		landing:    viewmodel.NewLanding(a.Client, a.Sessions, a.Config.API.LinkBaseURL),
		dashboards: make(map[string]*viewmodel.Dashboard),
	}, nil
}

type landingView struct {
	URL             string
	ShortURL        string
	Error           string
	DashboardTarget string
}

type dashboardView struct {
	Action      string
	State       viewmodel.DashboardState
	Form        viewmodel.LinkForm
	Orders      []domain.Order
	LinkBaseURL string
	PrevURL     string
	NextURL     string
}

// Landing handles GET /
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "landing", "Shorten a link", landingView{
		DashboardTarget: h.landing.DashboardTarget(),
	})
}

// Shorten handles POST /shorten
func (h *Handler) Shorten(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	view := landingView{
		URL:             r.PostFormValue("url"),
		DashboardTarget: h.landing.DashboardTarget(),
	}

	short, err := h.landing.Shorten(r.Context(), view.URL)
	if err != nil {
		log.Printf("[ERROR] Failed to shorten '%s': %v", view.URL, err)
		view.Error = err.Error()
		h.render(w, http.StatusUnprocessableEntity, "landing", "Shorten a link", view)
		return
	}

	view.ShortURL = short
	h.render(w, http.StatusOK, "landing", "Shorten a link", view)
}

// LoginPage handles GET /login
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "login", "Log in", viewmodel.LoginForm{})
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	form := &viewmodel.LoginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	dest, err := h.auth.Login(r.Context(), form)
	if err != nil {
		log.Printf("[ERROR] Login failed for '%s': %v", form.Email, err)
		form.Password = ""
		h.render(w, http.StatusUnauthorized, "login", "Log in", *form)
		return
	}

	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// RegisterPage handles GET /register
func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "register", "Register", viewmodel.RegisterForm{})
}

// Register handles POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	form := &viewmodel.RegisterForm{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
	dest, err := h.auth.Register(r.Context(), form)
	if err != nil {
		log.Printf("[ERROR] Registration failed for '%s': %v", form.Username, err)
		form.Password, form.ConfirmPassword = "", ""
		h.render(w, http.StatusUnprocessableEntity, "register", "Register", *form)
		return
	}

	h.notices.Success("Account created. Please log in.")
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	dest := h.app.Logout(r.Context())

	h.mu.Lock()
	clear(h.dashboards)
	h.mu.Unlock()

	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// Dashboard handles GET /{username}
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)[router.OwnerVar]
	d := h.dashboard(owner)

	if err := d.Apply(r.Context(), parseParams(r.URL.Query())); err != nil {
		log.Printf("[ERROR] Failed to load links for '%s': %v", owner, err)
	}
	h.renderDashboard(w, http.StatusOK, owner, d, viewmodel.LinkForm{})
}

// CreateLink handles POST /{username}/links
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	owner := mux.Vars(r)[router.OwnerVar]
	d := h.dashboard(owner)

	form := &viewmodel.LinkForm{
		URL:        r.PostFormValue("url"),
		Title:      r.PostFormValue("title"),
		ShortCode:  r.PostFormValue("short_code"),
		ClickLimit: r.PostFormValue("click_limit"),
		ExpireAt:   r.PostFormValue("expire_at"),
	}
	if _, err := d.Create(r.Context(), form); err != nil {
		log.Printf("[ERROR] Failed to create link for '%s': %v", owner, err)
		h.renderDashboard(w, http.StatusUnprocessableEntity, owner, d, *form)
		return
	}

	http.Redirect(w, r, dashboardURL(owner, d.State(), 1), http.StatusSeeOther)
}

// ToggleLink handles POST /{username}/links/{id}/status
func (h *Handler) ToggleLink(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner := vars[router.OwnerVar]

	id, err := uuid.Parse(vars["id"])
	if err != nil {
		http.Error(w, "Invalid link ID", http.StatusBadRequest)
		return
	}

	d := h.dashboard(owner)
	if err := d.Toggle(r.Context(), id); err != nil {
		log.Printf("[ERROR] Failed to toggle link %s: %v", id, err)
		if errors.Is(err, viewmodel.ErrLinkNotDisplayed) {
			h.notices.Error("That link is no longer on this page")
		}
	}

	state := d.State()
	http.Redirect(w, r, dashboardURL(owner, state, state.Page), http.StatusSeeOther)
}

// Loading renders the neutral placeholder shown before the session check completes
func (h *Handler) Loading(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, http.StatusServiceUnavailable, "loading", pageData{Title: "Loading"})
}

// dashboard returns the owner's dashboard, creating it on first use
func (h *Handler) dashboard(owner string) *viewmodel.Dashboard {
	h.mu.Lock()
	defer h.mu.Unlock()

	d, ok := h.dashboards[owner]
	if !ok {
		d = viewmodel.NewDashboard(h.app.Client, h.notices, h.app.Config.UI.PageSize)
		h.dashboards[owner] = d
	}
	return d
}

func (h *Handler) renderDashboard(w http.ResponseWriter, status int, owner string, d *viewmodel.Dashboard, form viewmodel.LinkForm) {
	state := d.State()
	view := dashboardView{
		Action:      session.DashboardPath(owner),
		State:       state,
		Form:        form,
		Orders:      domain.Orders,
		LinkBaseURL: h.app.Config.API.LinkBaseURL,
	}
	if state.Page > 1 {
		view.PrevURL = dashboardURL(owner, state, state.Page-1)
	}
	if state.Page < state.TotalPages {
		view.NextURL = dashboardURL(owner, state, state.Page+1)
	}
	h.render(w, status, "dashboard", "Your links", view)
}

func (h *Handler) render(w http.ResponseWriter, status int, name, title string, page any) {
	data := pageData{
		Title:   title,
		Notices: h.notices.Drain(),
		Page:    page,
	}
	if identity, err := h.app.Sessions.Current(); err == nil {
		data.User = identity
	}
	h.pages.render(w, status, name, data)
}

// parseParams reads page, order, asc and search; bad values fall back to
// the defaults
func parseParams(q url.Values) viewmodel.Params {
	p := viewmodel.Params{
		Page:   1,
		Order:  domain.OrderCreatedAt,
		Search: q.Get("search"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		p.Page = page
	}
	if order, err := domain.ParseOrder(q.Get("order")); err == nil {
		p.Order = order
	}
	if asc, err := strconv.ParseBool(q.Get("asc")); err == nil {
		p.Ascending = asc
	}
	return p
}

// dashboardURL encodes state at page as a dashboard location
func dashboardURL(owner string, state viewmodel.DashboardState, page int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("order", string(state.Order))
	if state.Ascending {
		q.Set("asc", "true")
	}
	if state.Search != "" {
		q.Set("search", state.Search)
	}
	return session.DashboardPath(owner) + "?" + q.Encode()
}
