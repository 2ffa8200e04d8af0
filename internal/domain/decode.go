package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DecodeError reports a response that does not match the expected schema
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %s", e.Field, e.Reason)
}

func missing(field string) error {
	return &DecodeError{Field: field, Reason: "missing required field"}
}

// decodeStrict rejects unknown fields in a record
func decodeStrict(data []byte, v any, what string) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return missing(what)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &DecodeError{Field: what, Reason: err.Error()}
	}
	return nil
}

// Instant is a timestamp sent either as RFC 3339 text or as Unix seconds
type Instant time.Time

// UnmarshalJSON accepts "2006-01-02T15:04:05Z07:00" or 1700000000
func (i *Instant) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("null instant")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		*i = Instant(t)
		return nil
	}
	secs, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid unix timestamp %s", b)
	}
	*i = Instant(time.Unix(secs, 0).UTC())
	return nil
}

// Time returns the instant as a time.Time
func (i Instant) Time() time.Time {
	return time.Time(i)
}

type identityWire struct {
	ID        *string `json:"id"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Role      *string `json:"role"`
}

// DecodeIdentity maps an identity record, failing on unknown or missing fields
func DecodeIdentity(data []byte) (Identity, error) {
	var w identityWire
	if err := decodeStrict(data, &w, "identity"); err != nil {
		return Identity{}, err
	}
	if w.ID == nil {
		return Identity{}, missing("identity.id")
	}
	id, err := uuid.Parse(*w.ID)
	if err != nil {
		return Identity{}, &DecodeError{Field: "identity.id", Reason: err.Error()}
	}
	if w.Username == nil || *w.Username == "" {
		return Identity{}, missing("identity.username")
	}
	if w.Email == nil {
		return Identity{}, missing("identity.email")
	}
	if w.Role == nil {
		return Identity{}, missing("identity.role")
	}
	return Identity{
		ID:        id,
		Username:  *w.Username,
		Email:     *w.Email,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Role:      *w.Role,
	}, nil
}

type sessionWire struct {
	LoggedIn  *bool           `json:"logged_in"`
	ExpiresAt *Instant        `json:"expires_at"`
	Data      json.RawMessage `json:"data"`
}

// DecodeSession maps a login response ({logged_in, expires_at, data})
func DecodeSession(data []byte) (*Session, error) {
	var w sessionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Field: "session", Reason: err.Error()}
	}
	if w.ExpiresAt == nil {
		return nil, missing("session.expires_at")
	}
	if w.LoggedIn != nil && !*w.LoggedIn {
		return nil, &DecodeError{Field: "session.logged_in", Reason: "server reported logged_in=false"}
	}
	identity, err := DecodeIdentity(w.Data)
	if err != nil {
		return nil, err
	}
	return &Session{
		Identity:  identity,
		ExpiresAt: w.ExpiresAt.Time(),
		LoggedIn:  true,
	}, nil
}

type linkWire struct {
	ID          *string    `json:"id"`
	OriginalURL *string    `json:"original_url"`
	ShortCode   *string    `json:"short_code"`
	Title       *string    `json:"title"`
	IsActive    *bool      `json:"is_active"`
	ClickLimit  *int32     `json:"click_limit"`
	ExpireAt    *time.Time `json:"expire_at"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	TotalClicks *int64     `json:"total_clicks"`
}

// DecodeLink maps a link record, failing on unknown or missing fields
func DecodeLink(data []byte) (Link, error) {
	var w linkWire
	if err := decodeStrict(data, &w, "link"); err != nil {
		return Link{}, err
	}
	if w.ID == nil {
		return Link{}, missing("link.id")
	}
	id, err := uuid.Parse(*w.ID)
	if err != nil {
		return Link{}, &DecodeError{Field: "link.id", Reason: err.Error()}
	}
	switch {
	case w.OriginalURL == nil:
		return Link{}, missing("link.original_url")
	case w.ShortCode == nil:
		return Link{}, missing("link.short_code")
	case w.IsActive == nil:
		return Link{}, missing("link.is_active")
	case w.CreatedAt == nil:
		return Link{}, missing("link.created_at")
	case w.UpdatedAt == nil:
		return Link{}, missing("link.updated_at")
	}

	link := Link{
		ID:          id,
		OriginalURL: *w.OriginalURL,
		ShortCode:   *w.ShortCode,
		IsActive:    *w.IsActive,
		ClickLimit:  w.ClickLimit,
		CreatedAt:   *w.CreatedAt,
		UpdatedAt:   *w.UpdatedAt,
	}
	if w.Title != nil {
		link.Title = *w.Title
	}
	// the server encodes "no expiry" as the zero time
	if w.ExpireAt != nil && !w.ExpireAt.IsZero() {
		t := *w.ExpireAt
		link.ExpireAt = &t
	}
	if w.TotalClicks != nil {
		link.TotalClicks = *w.TotalClicks
	}
	return link, nil
}

type linkPageWire struct {
	Links      []json.RawMessage `json:"links"`
	Pagination *struct {
		Total   *int  `json:"total"`
		Limit   int64 `json:"limit"`
		Offset  int64 `json:"offset"`
		HasMore bool  `json:"has_more"`
	} `json:"pagination"`
}

// DecodeLinkPage maps a list response ({links, pagination})
func DecodeLinkPage(data []byte) (*LinkPage, error) {
	var w linkPageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Field: "links", Reason: err.Error()}
	}
	if w.Pagination == nil {
		return nil, missing("pagination")
	}
	if w.Pagination.Total == nil {
		return nil, missing("pagination.total")
	}

	page := &LinkPage{
		Links: make([]Link, 0, len(w.Links)),
		Pagination: Pagination{
			Total:   *w.Pagination.Total,
			Limit:   w.Pagination.Limit,
			Offset:  w.Pagination.Offset,
			HasMore: w.Pagination.HasMore,
		},
	}
	for i, raw := range w.Links {
		link, err := DecodeLink(raw)
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		page.Links = append(page.Links, link)
	}
	return page, nil
}

type registrationWire struct {
	Data *struct {
		UserID   *string `json:"user_id"`
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Role     *string `json:"role"`
	} `json:"data"`
}

// DecodeRegistration maps a register response ({message, data})
func DecodeRegistration(data []byte) (*Registration, error) {
	var w registrationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Field: "registration", Reason: err.Error()}
	}
	if w.Data == nil {
		return nil, missing("registration.data")
	}
	if w.Data.UserID == nil {
		return nil, missing("registration.user_id")
	}
	id, err := uuid.Parse(*w.Data.UserID)
	if err != nil {
		return nil, &DecodeError{Field: "registration.user_id", Reason: err.Error()}
	}
	reg := &Registration{UserID: id}
	if w.Data.Username != nil {
		reg.Username = *w.Data.Username
	}
	if w.Data.Email != nil {
		reg.Email = *w.Data.Email
	}
	if w.Data.Role != nil {
		reg.Role = *w.Data.Role
	}
	return reg, nil
}
