package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is the authenticated account as reported by the API
type Identity struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
	Role      string    `json:"role"`
}

// DisplayName returns "First Last" when known, otherwise the username
func (i Identity) DisplayName() string {
	var parts []string
	if i.FirstName != nil && *i.FirstName != "" {
		parts = append(parts, *i.FirstName)
	}
	if i.LastName != nil && *i.LastName != "" {
		parts = append(parts, *i.LastName)
	}
	if len(parts) == 0 {
		return i.Username
	}
	return strings.Join(parts, " ")
}

// Session is a locally cached authenticated identity and its expiry
type Session struct {
	Identity  Identity
	ExpiresAt time.Time
	LoggedIn  bool
}

// ValidAt reports whether the session is still usable at the given instant
func (s *Session) ValidAt(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// Link is the client's read-through copy of a server-owned short link
type Link struct {
	ID          uuid.UUID
	OriginalURL string
	ShortCode   string
	Title       string
	IsActive    bool
	ClickLimit  *int32
	ExpireAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	TotalClicks int64
}

// ShortURL joins the public link base URL and the short code
func (l Link) ShortURL(base string) string {
	return strings.TrimRight(base, "/") + "/" + l.ShortCode
}

// Pagination is the metadata returned alongside a page of links
type Pagination struct {
	Total   int   `json:"total"`
	Limit   int64 `json:"limit"`
	Offset  int64 `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// LinkPage is one bounded, ordered page of links
type LinkPage struct {
	Links      []Link
	Pagination Pagination
}

// Order names the column links are sorted by
type Order string

const (
	OrderCreatedAt Order = "created_at"
	OrderUpdatedAt Order = "updated_at"
	OrderTitle     Order = "title"
	OrderIsActive  Order = "is_active"
)

// Orders lists every supported sort column
var Orders = []Order{OrderCreatedAt, OrderUpdatedAt, OrderTitle, OrderIsActive}

// ParseOrder validates a sort column name
func ParseOrder(s string) (Order, error) {
	for _, o := range Orders {
		if string(o) == s {
			return o, nil
		}
	}
	return "", fmt.Errorf("unknown order %q", s)
}

// LinkQuery parameterizes a page of links
type LinkQuery struct {
	Limit     int
	Offset    int
	Order     Order
	Ascending bool
	Search    string
}

// Values maps the query to URL query parameters; a blank search is omitted
func (q LinkQuery) Values() url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("offset", strconv.Itoa(q.Offset))
	v.Set("order", string(q.Order))
	v.Set("ascending", strconv.FormatBool(q.Ascending))
	if search := strings.TrimSpace(q.Search); search != "" {
		v.Set("search", search)
	}
	return v
}

// CreateLinkRequest is the body of a link creation
type CreateLinkRequest struct {
	OriginalURL string     `json:"original_url"`
	Title       *string    `json:"title,omitempty"`
	ShortCode   *string    `json:"short_code,omitempty"`
	ClickLimit  *int32     `json:"click_limit,omitempty"`
	ExpireAt    *time.Time `json:"expire_at,omitempty"`
}

// LoginRequest is the body of a session creation
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of an account registration
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration acknowledges a created account
type Registration struct {
	UserID   uuid.UUID
	Username string
	Email    string
	Role     string
}

// SetStatusRequest is the body of a link status change
type SetStatusRequest struct {
	IsActive bool `json:"is_active"`
}
