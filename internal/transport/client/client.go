package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshdurbin/goshort/internal/domain"
)

// ErrAuthenticationFailed is returned by Login for any non-success response
var ErrAuthenticationFailed = errors.New("authentication failed")

// Error is a non-success response from the API
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Client is an HTTP client for the URL shortener API. Requests carry the
// credential cookies held in the jar; no token is ever put in a header.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithCookieJar sets the jar holding the session cookies
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.httpClient.Jar = jar
	}
}

// WithTransport sets the round tripper used for requests
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// NewClient creates a new API client for apiURL (e.g. http://localhost:8080/api/v1)
func NewClient(apiURL string, opts ...Option) *Client {
	c := &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIURL returns the base URL requests are issued against
func (c *Client) APIURL() string {
	return c.apiURL
}

// Jar returns the client's cookie jar (may be nil)
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// Login creates a session from credentials
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/login", domain.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, apiError(status, body))
	}

	session, err := domain.DecodeSession(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return session, nil
}

// Logout terminates the server-side session
func (c *Client) Logout(ctx context.Context) error {
	body, status, err := c.do(ctx, http.MethodDelete, "/logout", nil)
	if err != nil {
		return err
	}
	if !success(status) {
		return apiError(status, body)
	}
	return nil
}

// Register creates a new account
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Registration, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/register", req)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, apiError(status, body)
	}

	reg, err := domain.DecodeRegistration(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return reg, nil
}

// ListLinks retrieves one page of the user's links
func (c *Client) ListLinks(ctx context.Context, query domain.LinkQuery) (*domain.LinkPage, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/links?"+query.Values().Encode(), nil)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, apiError(status, body)
	}

	page, err := domain.DecodeLinkPage(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return page, nil
}

// CreateLink creates a short link
func (c *Client) CreateLink(ctx context.Context, req domain.CreateLinkRequest) (*domain.Link, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/links", req)
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, apiError(status, body)
	}

	link, err := domain.DecodeLink(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &link, nil
}

// SetLinkActive activates or deactivates a link
func (c *Client) SetLinkActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Link, error) {
	body, status, err := c.do(ctx, http.MethodPatch, "/links/"+id.String()+"/status", domain.SetStatusRequest{IsActive: active})
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, apiError(status, body)
	}

	link, err := domain.DecodeLink(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &link, nil
}

// do issues one request and returns the raw body and status
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// apiError extracts the server-supplied "message" or "error" text, if any
func apiError(status int, body []byte) *Error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	e := &Error{StatusCode: status}
	if err := json.Unmarshal(body, &payload); err == nil {
		e.Message = payload.Message
		if e.Message == "" {
			e.Message = payload.Error
		}
	}
	return e
}
