package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/joshdurbin/goshort/internal/storage"
)

// CookiesKey is the storage entry holding persisted cookies
const CookiesKey = "cookies"

type persistedCookie struct {
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

func (p persistedCookie) key() string {
	u, _ := url.Parse(p.URL)
	host := p.URL
	if u != nil {
		host = u.Host
	}
	return host + "|" + p.Domain + "|" + p.Path + "|" + p.Name
}

func (p persistedCookie) cookie() *http.Cookie {
	return &http.Cookie{
		Name:     p.Name,
		Value:    p.Value,
		Path:     p.Path,
		Domain:   p.Domain,
		Expires:  p.Expires,
		Secure:   p.Secure,
		HttpOnly: p.HttpOnly,
	}
}

// PersistentJar is an http.CookieJar that mirrors accepted cookies into a
// storage.Storage so the credential cookie outlives the process
type PersistentJar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	storage storage.Storage
	entries map[string]persistedCookie
	now     func() time.Time
}

// NewPersistentJar creates a jar and restores the cookies saved in s
func NewPersistentJar(ctx context.Context, s storage.Storage) (*PersistentJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	j := &PersistentJar{
		jar:     inner,
		storage: s,
		entries: make(map[string]persistedCookie),
		now:     time.Now,
	}

	payload, exists, err := s.GetItem(ctx, CookiesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}
	if !exists {
		return j, nil
	}

	var saved []persistedCookie
	if err := json.Unmarshal([]byte(payload), &saved); err != nil {
		log.Printf("Discarding malformed stored cookies: %v", err)
		return j, nil
	}

	now := j.now()
	for _, p := range saved {
		if !p.Expires.IsZero() && !p.Expires.After(now) {
			continue
		}
		u, err := url.Parse(p.URL)
		if err != nil {
			continue
		}
		j.jar.SetCookies(u, []*http.Cookie{p.cookie()})
		j.entries[p.key()] = p
	}

	return j, nil
}

// SetCookies stores the cookies in memory and persists the new set
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if isLoopback(u) {
		// browsers treat http://localhost as a secure context; cookiejar does not
		patched := make([]*http.Cookie, len(cookies))
		for i, c := range cookies {
			cc := *c
			cc.Secure = false
			patched[i] = &cc
		}
		cookies = patched
	}

	// the inner jar and entries change together so Clear cannot interleave
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	origin := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}
	now := j.now()
	for _, c := range cookies {
		p := persistedCookie{
			URL:      origin.String(),
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		switch {
		case c.MaxAge < 0:
			delete(j.entries, p.key())
			continue
		case c.MaxAge > 0:
			p.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		default:
			p.Expires = c.Expires
		}
		if !p.Expires.IsZero() && !p.Expires.After(now) {
			delete(j.entries, p.key())
			continue
		}
		j.entries[p.key()] = p
	}

	if err := j.persistLocked(context.Background()); err != nil {
		log.Printf("[ERROR] %v", err)
	}
}

// Cookies returns the cookies to send to u
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	inner := j.jar
	j.mu.Unlock()

	return inner.Cookies(u)
}

// Clear drops every cookie from memory and storage
func (j *PersistentJar) Clear(ctx context.Context) error {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar = inner
	j.entries = make(map[string]persistedCookie)
	if err := j.storage.RemoveItem(ctx, CookiesKey); err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}
	return nil
}

func (j *PersistentJar) persistLocked(ctx context.Context) error {
	saved := make([]persistedCookie, 0, len(j.entries))
	for _, p := range j.entries {
		saved = append(saved, p)
	}
	sort.Slice(saved, func(a, b int) bool { return saved[a].key() < saved[b].key() })

	payload, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	if err := j.storage.SetItem(ctx, CookiesKey, string(payload)); err != nil {
		return fmt.Errorf("failed to persist cookies: %w", err)
	}
	return nil
}

func isLoopback(u *url.URL) bool {
	if u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Ensure PersistentJar implements the interface
var _ http.CookieJar = (*PersistentJar)(nil)
