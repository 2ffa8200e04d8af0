package viewmodel

import (
	"context"

	"github.com/google/uuid"

	"github.com/joshdurbin/goshort/internal/domain"
)

// LinkAPI is the part of the API client the dashboard uses
type LinkAPI interface {
	ListLinks(ctx context.Context, query domain.LinkQuery) (*domain.LinkPage, error)
	CreateLink(ctx context.Context, req domain.CreateLinkRequest) (*domain.Link, error)
	SetLinkActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Link, error)
}

// LinkCreator creates a single link
type LinkCreator interface {
	CreateLink(ctx context.Context, req domain.CreateLinkRequest) (*domain.Link, error)
}

// AuthAPI is the part of the API client the login and register forms use
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.Registration, error)
}

// Sessions is the part of the session manager the forms use
type Sessions interface {
	Current() (*domain.Identity, error)
	Login(ctx context.Context, s *domain.Session) (string, error)
}
