package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"

	"github.com/joshdurbin/goshort/internal/domain"
)

var (
	// ErrSessionLoading is returned when the session is read before Init completes
	ErrSessionLoading = errors.New("session check in progress")
	// ErrNoSession is returned when nobody is logged in
	ErrNoSession = errors.New("not logged in")
)

// Navigation targets produced by Login and Logout
const (
	LoginPath = "/login"
	RootPath  = "/"
)

// DashboardPath returns the dashboard location of a username
func DashboardPath(username string) string {
	return "/" + url.PathEscape(username)
}

// RemoteLogout terminates the server-side session
type RemoteLogout interface {
	Logout(ctx context.Context) error
}

// Manager is the single holder of the authenticated identity. It is created
// once at start-up and passed to everything that needs the session.
type Manager struct {
	mu      sync.RWMutex
	store   *Store
	remote  RemoteLogout
	current *domain.Session
	loading bool
}

// NewManager creates a manager whose initial check has not run yet
func NewManager(store *Store, remote RemoteLogout) *Manager {
	return &Manager{
		store:   store,
		remote:  remote,
		loading: true,
	}
}

// Init performs the initial check against the store. It runs once; later
// calls are no-ops.
func (m *Manager) Init(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loading {
		return
	}
	if stored, ok := m.store.Load(ctx); ok {
		m.current = stored
	}
	m.loading = false
}

// Loading reports whether the initial check is still in flight
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Current returns the logged-in identity. A session that has expired since
// it was loaded is dropped silently.
func (m *Manager) Current() (*domain.Identity, error) {
	m.mu.RLock()
	loading, current := m.loading, m.current
	m.mu.RUnlock()

	if loading {
		return nil, ErrSessionLoading
	}
	if current == nil {
		return nil, ErrNoSession
	}
	if !current.ValidAt(m.store.Now()) {
		m.expire(current)
		return nil, ErrNoSession
	}

	identity := current.Identity
	return &identity, nil
}

// Session returns a copy of the full session record
func (m *Manager) Session() (*domain.Session, error) {
	if _, err := m.Current(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, ErrNoSession
	}
	s := *m.current
	return &s, nil
}

// Login persists the session, makes it current and returns the identity's
// dashboard path as the navigation target
func (m *Manager) Login(ctx context.Context, s *domain.Session) (string, error) {
	if s == nil {
		return "", fmt.Errorf("login requires a session")
	}
	// store writes happen under mu so a concurrent purge cannot undo them
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(ctx, s.Identity, s.ExpiresAt); err != nil {
		return "", err
	}

	copied := *s
	copied.LoggedIn = true
	m.current = &copied
	m.loading = false

	return DashboardPath(s.Identity.Username), nil
}

// Logout clears local state first so the logged-out state is visible
// immediately, then notifies the API best-effort. It returns the login path.
func (m *Manager) Logout(ctx context.Context) string {
	m.mu.Lock()
	m.current = nil
	if err := m.store.Clear(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
	}
	m.mu.Unlock()

	if m.remote != nil {
		if err := m.remote.Logout(ctx); err != nil {
			log.Printf("[ERROR] Remote logout failed: %v", err)
		}
	}

	return LoginPath
}

func (m *Manager) expire(s *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// another goroutine may have logged in meanwhile
	if m.current != s {
		return
	}
	m.current = nil
	if err := m.store.Clear(context.Background()); err != nil {
		log.Printf("[ERROR] %v", err)
	}
}
