// Package apitest runs an in-memory stand-in for the remote URL shortener
// API. It speaks the same wire format and cookie authentication as the real
// server and is used by tests across the module.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	// APIPrefix is the path prefix of every API route
	APIPrefix = "/api/v1"
	// SessionTTL is the lifetime of a login
	SessionTTL = 24 * time.Hour

	cookieName = "access_token"
	issuer     = "goshort-apitest"
)

type user struct {
	id       uuid.UUID
	username string
	email    string
	password string
	role     string
}

type link struct {
	ID          uuid.UUID `json:"id"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	Title       *string   `json:"title,omitempty"`
	IsActive    bool      `json:"is_active"`
	ClickLimit  *int32    `json:"click_limit,omitempty"`
	ExpireAt    time.Time `json:"expire_at,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	TotalClicks int32     `json:"total_clicks"`

	owner uuid.UUID
}

type claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Failure is a canned error response
type Failure struct {
	Status  int
	Message string
}

// Server is a fake API server
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	secret   []byte
	now      func() time.Time
	users    map[string]*user // by email
	links    []*link
	revoked  map[string]bool
	failures map[string]Failure // by route name
	calls    map[string]int
	seq      int
}

// New starts a fake API server; callers must Close it
func New() *Server {
	s := &Server{
		secret:   []byte("apitest-secret"),
		now:      time.Now,
		users:    make(map[string]*user),
		revoked:  make(map[string]bool),
		failures: make(map[string]Failure),
		calls:    make(map[string]int),
	}

	r := mux.NewRouter()
	api := r.PathPrefix(APIPrefix).Subrouter()
	api.HandleFunc("/login", s.login).Methods(http.MethodPost).Name("login")
	api.HandleFunc("/register", s.register).Methods(http.MethodPost).Name("register")
	api.HandleFunc("/logout", s.authenticated(s.logout)).Methods(http.MethodDelete).Name("logout")
	api.HandleFunc("/links", s.authenticated(s.listLinks)).Methods(http.MethodGet).Name("list")
	api.HandleFunc("/links", s.authenticated(s.createLink)).Methods(http.MethodPost).Name("create")
	api.HandleFunc("/links/{id}/status", s.authenticated(s.setStatus)).Methods(http.MethodPatch).Name("status")
	r.Use(s.countAndFail)

	s.Server = httptest.NewServer(r)
	return s
}

// APIURL is the base URL to configure the client with
func (s *Server) APIURL() string {
	return s.URL + APIPrefix
}

// AddUser registers an account directly
func (s *Server) AddUser(username, email, password string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUser(username, email, password)
}

// AddLinks creates n links owned by the account with email
func (s *Server) AddLinks(email string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[email]
	if u == nil {
		return
	}
	for i := 0; i < n; i++ {
		s.addLink(u.id, "https://example.com/page/"+strconv.Itoa(i), nil, nil)
	}
}

// Fail makes every request to the named route ("login", "register",
// "logout", "list", "create", "status") fail with f; a zero Failure clears it
func (s *Server) Fail(route string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = f
}

// Calls returns how many requests reached the named route
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Active reports the active flag of the link with the given short code
func (s *Server) Active(shortCode string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.ShortCode == shortCode {
			return l.IsActive, true
		}
	}
	return false, false
}

func (s *Server) addUser(username, email, password string) uuid.UUID {
	u := &user{id: uuid.New(), username: username, email: email, password: password, role: "user"}
	s.users[email] = u
	return u.id
}

func (s *Server) addLink(owner uuid.UUID, originalURL string, title, code *string) *link {
	s.seq++
	now := s.now().UTC()
	l := &link{
		ID:          uuid.New(),
		OriginalURL: originalURL,
		Title:       title,
		IsActive:    true,
		CreatedAt:   now.Add(time.Duration(s.seq) * time.Millisecond),
		owner:       owner,
	}
	l.UpdatedAt = l.CreatedAt
	if code != nil {
		l.ShortCode = *code
	} else {
		l.ShortCode = "c" + strconv.Itoa(s.seq)
	}
	s.links = append(s.links, l)
	return l
}

func (s *Server) countAndFail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		s.mu.Lock()
		s.calls[name]++
		f, failing := s.failures[name]
		s.mu.Unlock()

		if failing {
			writeError(w, f.Status, f.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, u *user, token string)

func (s *Server) authenticated(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(cookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing access token")
			return
		}

		var c claims
		_, err = jwt.ParseWithClaims(cookie.Value, &c, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}

		s.mu.Lock()
		u := s.users[c.Email]
		revoked := s.revoked[cookie.Value]
		s.mu.Unlock()

		if u == nil || revoked {
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		}
		next(w, r, u, cookie.Value)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	u := s.users[req.Email]
	s.mu.Unlock()
	if u == nil || u.password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := s.now()
	expiresAt := now.Add(SessionTTL)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:   u.id.String(),
		Username: u.username,
		Email:    u.email,
		Role:     u.role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(s.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"logged_in":  true,
		"expires_at": expiresAt.Unix(),
		"data": map[string]any{
			"id":       u.id,
			"username": u.username,
			"email":    u.email,
			"role":     u.role,
		},
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "username, email and a password of at least 6 characters are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	id := s.addUser(req.Username, req.Email, req.Password)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered successfully",
		"data": map[string]any{
			"user_id":  id,
			"username": req.Username,
			"email":    req.Email,
			"role":     "user",
		},
	})
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request, _ *user, token string) {
	s.mu.Lock()
	s.revoked[token] = true
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1, Secure: true, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) listLinks(w http.ResponseWriter, r *http.Request, u *user, _ string) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	ascending := q.Get("ascending") == "true"
	search := strings.ToLower(q.Get("search"))

	s.mu.Lock()
	var matched []link
	for _, l := range s.links {
		if l.owner != u.id {
			continue
		}
		if search != "" && !matches(l, search) {
			continue
		}
		matched = append(matched, *l)
	}
	s.mu.Unlock()

	less := lessBy(q.Get("order"))
	sort.SliceStable(matched, func(i, j int) bool {
		if ascending {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})

	total := len(matched)
	start := min(offset, total)
	end := min(start+limit, total)

	writeJSON(w, http.StatusOK, map[string]any{
		"links": matched[start:end],
		"pagination": map[string]any{
			"total":    total,
			"limit":    limit,
			"offset":   offset,
			"has_more": end < total,
		},
	})
}

func (s *Server) createLink(w http.ResponseWriter, r *http.Request, u *user, _ string) {
	var req struct {
		OriginalURL string     `json:"original_url"`
		Title       *string    `json:"title"`
		ShortCode   *string    `json:"short_code"`
		ClickLimit  *int32     `json:"click_limit"`
		ExpireAt    *time.Time `json:"expire_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !strings.HasPrefix(req.OriginalURL, "http://") && !strings.HasPrefix(req.OriginalURL, "https://") {
		writeError(w, http.StatusBadRequest, "original_url must be an http or https URL")
		return
	}

	s.mu.Lock()
	if req.ShortCode != nil {
		for _, l := range s.links {
			if l.ShortCode == *req.ShortCode {
				s.mu.Unlock()
				writeError(w, http.StatusConflict, "short code already in use")
				return
			}
		}
	}
	l := s.addLink(u.id, req.OriginalURL, req.Title, req.ShortCode)
	l.ClickLimit = req.ClickLimit
	if req.ExpireAt != nil {
		l.ExpireAt = req.ExpireAt.UTC()
	}
	created := *l
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request, u *user, _ string) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid link id")
		return
	}

	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "is_active is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.ID == id && l.owner == u.id {
			l.IsActive = *req.IsActive
			l.UpdatedAt = s.now().UTC()
			writeJSON(w, http.StatusOK, *l)
			return
		}
	}
	writeError(w, http.StatusNotFound, "link not found")
}

func matches(l *link, term string) bool {
	if strings.Contains(strings.ToLower(l.OriginalURL), term) || strings.Contains(strings.ToLower(l.ShortCode), term) {
		return true
	}
	return l.Title != nil && strings.Contains(strings.ToLower(*l.Title), term)
}

func lessBy(order string) func(a, b link) bool {
	switch order {
	case "updated_at":
		return func(a, b link) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case "title":
		return func(a, b link) bool { return deref(a.Title) < deref(b.Title) }
	case "is_active":
		return func(a, b link) bool { return !a.IsActive && b.IsActive }
	default:
		return func(a, b link) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
