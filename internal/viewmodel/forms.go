package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joshdurbin/goshort/internal/domain"
	"github.com/joshdurbin/goshort/internal/session"
)

var (
	// ErrURLRequired is returned when a link form is submitted without a URL
	ErrURLRequired = errors.New("URL is required")
	// ErrPasswordMismatch is returned when the register form passwords differ
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// localDateTime is the layout of an HTML datetime-local input
const localDateTime = "2006-01-02T15:04"

// LinkForm holds the raw create-link inputs
type LinkForm struct {
	URL        string
	Title      string
	ShortCode  string
	ClickLimit string
	ExpireAt   string
}

// Request validates the form. Only the URL is required; the other fields
// pass through when set.
func (f *LinkForm) Request() (domain.CreateLinkRequest, error) {
	original := strings.TrimSpace(f.URL)
	if original == "" {
		return domain.CreateLinkRequest{}, ErrURLRequired
	}

	req := domain.CreateLinkRequest{OriginalURL: original}
	if title := strings.TrimSpace(f.Title); title != "" {
		req.Title = &title
	}
	if code := strings.TrimSpace(f.ShortCode); code != "" {
		req.ShortCode = &code
	}
	if raw := strings.TrimSpace(f.ClickLimit); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || limit <= 0 {
			return domain.CreateLinkRequest{}, fmt.Errorf("click limit must be a positive integer")
		}
		l := int32(limit)
		req.ClickLimit = &l
	}
	if raw := strings.TrimSpace(f.ExpireAt); raw != "" {
		expireAt, err := parseExpiry(raw)
		if err != nil {
			return domain.CreateLinkRequest{}, fmt.Errorf("invalid expiry %q: use RFC 3339 or %s", raw, localDateTime)
		}
		req.ExpireAt = &expireAt
	}
	return req, nil
}

// Reset clears every field
func (f *LinkForm) Reset() {
	*f = LinkForm{}
}

func parseExpiry(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation(localDateTime, raw, time.Local)
}

// LoginForm holds the login inputs and the last error shown
type LoginForm struct {
	Email    string
	Password string
	Error    string
}

// RegisterForm holds the registration inputs and the last error shown
type RegisterForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Error           string
}

// Auth submits the login and register forms
type Auth struct {
	api      AuthAPI
	sessions Sessions
}

// NewAuth creates the form submitter
func NewAuth(api AuthAPI, sessions Sessions) *Auth {
	return &Auth{api: api, sessions: sessions}
}

// Login authenticates and starts the session; it returns the dashboard path
func (a *Auth) Login(ctx context.Context, form *LoginForm) (string, error) {
	form.Error = ""

	s, err := a.api.Login(ctx, strings.TrimSpace(form.Email), form.Password)
	if err != nil {
		form.Error = "Invalid email or password"
		return "", err
	}

	dest, err := a.sessions.Login(ctx, s)
	if err != nil {
		form.Error = "Could not save your session"
		return "", err
	}

	form.Password = ""
	return dest, nil
}

// Register creates an account; it returns the login path
func (a *Auth) Register(ctx context.Context, form *RegisterForm) (string, error) {
	form.Error = ""

	if form.Password != form.ConfirmPassword {
		form.Error = "Passwords do not match"
		return "", ErrPasswordMismatch
	}

	_, err := a.api.Register(ctx, domain.RegisterRequest{
		Username: strings.TrimSpace(form.Username),
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
	})
	if err != nil {
		form.Error = userMessage(err, "Registration failed")
		return "", err
	}

	form.Password, form.ConfirmPassword = "", ""
	return session.LoginPath, nil
}

// Landing is the public page: anonymous shortening and the dashboard button
type Landing struct {
	api         LinkCreator
	sessions    Sessions
	linkBaseURL string
}

// NewLanding creates the landing view-model
func NewLanding(api LinkCreator, sessions Sessions, linkBaseURL string) *Landing {
	return &Landing{api: api, sessions: sessions, linkBaseURL: linkBaseURL}
}

// Shorten creates a link for rawURL and returns its full short URL
func (l *Landing) Shorten(ctx context.Context, rawURL string) (string, error) {
	original := strings.TrimSpace(rawURL)
	if original == "" {
		return "", ErrURLRequired
	}

	link, err := l.api.CreateLink(ctx, domain.CreateLinkRequest{OriginalURL: original})
	if err != nil {
		return "", errors.New(userMessage(err, "Failed to create short link"))
	}
	return link.ShortURL(l.linkBaseURL), nil
}

// DashboardTarget is where the dashboard button leads
func (l *Landing) DashboardTarget() string {
	identity, err := l.sessions.Current()
	if err != nil {
		return session.LoginPath
	}
	return session.DashboardPath(identity.Username)
}
