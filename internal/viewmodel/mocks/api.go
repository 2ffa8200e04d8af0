package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/goshort/internal/domain"
)

// LinkAPI is a mock implementation of viewmodel.LinkAPI
type LinkAPI struct {
	mock.Mock
}

// ListLinks returns one page of links
func (m *LinkAPI) ListLinks(ctx context.Context, query domain.LinkQuery) (*domain.LinkPage, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LinkPage), args.Error(1)
}

// CreateLink creates a link
func (m *LinkAPI) CreateLink(ctx context.Context, req domain.CreateLinkRequest) (*domain.Link, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// SetLinkActive changes a link's active flag
func (m *LinkAPI) SetLinkActive(ctx context.Context, id uuid.UUID, active bool) (*domain.Link, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// AuthAPI is a mock implementation of viewmodel.AuthAPI
type AuthAPI struct {
	mock.Mock
}

// Login authenticates
func (m *AuthAPI) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

// Register creates an account
func (m *AuthAPI) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Registration, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Registration), args.Error(1)
}

// Sessions is a mock implementation of viewmodel.Sessions
type Sessions struct {
	mock.Mock
}

// Current returns the logged-in identity
func (m *Sessions) Current() (*domain.Identity, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Identity), args.Error(1)
}

// Login starts a session
func (m *Sessions) Login(ctx context.Context, s *domain.Session) (string, error) {
	args := m.Called(ctx, s)
	return args.String(0), args.Error(1)
}
