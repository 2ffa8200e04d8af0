package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/goshort/internal/apitest"
	"github.com/joshdurbin/goshort/internal/app"
	"github.com/joshdurbin/goshort/internal/config"
	"github.com/joshdurbin/goshort/internal/domain"
	"github.com/joshdurbin/goshort/internal/router"
	"github.com/joshdurbin/goshort/internal/session"
	"github.com/joshdurbin/goshort/internal/storage"
	"github.com/joshdurbin/goshort/internal/viewmodel"
)

func newConfig(apiURL, dbPath string) *config.Config {
	return &config.Config{
		API:     config.APIConfig{URL: apiURL, LinkBaseURL: "http://sho.rt"},
		Storage: config.StorageConfig{Driver: storage.DriverSQLite, Path: dbPath},
		UI:      config.UIConfig{Addr: ":0", PageSize: viewmodel.DefaultPageSize},
	}
}

func TestIntegration_FullWorkflow(t *testing.T) {
	// Create temporary database
	dbPath := fmt.Sprintf("/tmp/test_goshort_%d.db", time.Now().UnixNano())
	defer os.Remove(dbPath)

	api := apitest.New()
	defer api.Close()

	ctx := context.Background()
	cfg := newConfig(api.APIURL(), dbPath)

	// First process: register and log in
	first, err := app.New(ctx, cfg)
	require.NoError(t, err)

	assert.Equal(t, router.Render, router.GuestOnly(first.Sessions).Outcome)
	assert.Equal(t, router.Decision{Outcome: router.Redirect, Location: "/login"}, router.UserOnly(first.Sessions, "alice"))

	auth := viewmodel.NewAuth(first.Client, first.Sessions)
	dest, err := auth.Register(ctx, &viewmodel.RegisterForm{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "password",
		ConfirmPassword: "password",
	})
	require.NoError(t, err)
	assert.Equal(t, "/login", dest)

	dest, err = auth.Login(ctx, &viewmodel.LoginForm{Email: "alice@example.com", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, "/alice", dest)
	require.NoError(t, first.Close())

	// Second process: the session and the cookie come back from storage
	second, err := app.New(ctx, cfg)
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, router.Decision{Outcome: router.Redirect, Location: "/alice"}, router.GuestOnly(second.Sessions))
	assert.Equal(t, router.Render, router.UserOnly(second.Sessions, "alice").Outcome)
	assert.Equal(t, router.Decision{Outcome: router.Redirect, Location: "/"}, router.UserOnly(second.Sessions, "bob"))

	notices := viewmodel.NewNotices(10)
	dashboard := viewmodel.NewDashboard(second.Client, notices, cfg.UI.PageSize)

	for i := 0; i < 24; i++ {
		_, err := dashboard.Create(ctx, &viewmodel.LinkForm{URL: fmt.Sprintf("https://example.com/%d", i)})
		require.NoError(t, err)
	}
	_, err = dashboard.Create(ctx, &viewmodel.LinkForm{URL: "https://docs.example.com", Title: "Docs", ShortCode: "docs"})
	require.NoError(t, err)

	state := dashboard.State()
	assert.Equal(t, 1, state.Page)
	assert.Equal(t, 3, state.TotalPages)
	assert.Equal(t, 25, state.Total)
	require.Len(t, state.Links, 10)
	assert.Equal(t, "docs", state.Links[0].ShortCode)

	require.NoError(t, dashboard.SetPage(ctx, 3))
	assert.Len(t, dashboard.State().Links, 5)

	require.NoError(t, dashboard.Search(ctx, "docs"))
	state = dashboard.State()
	assert.Equal(t, 1, state.Page)
	assert.Equal(t, 1, state.Total)

	require.NoError(t, dashboard.Toggle(ctx, state.Links[0].ID))
	assert.False(t, dashboard.State().Links[0].IsActive)
	active, _ := api.Active("docs")
	assert.False(t, active)

	api.Fail("status", apitest.Failure{Status: 500, Message: "unavailable"})
	require.Error(t, dashboard.Toggle(ctx, state.Links[0].ID))
	assert.False(t, dashboard.State().Links[0].IsActive)
	api.Fail("status", apitest.Failure{})

	// Logout: local state goes first, then the server session
	assert.Equal(t, session.LoginPath, second.Logout(ctx))
	_, err = second.Sessions.Current()
	assert.ErrorIs(t, err, session.ErrNoSession)
	assert.Equal(t, 1, api.Calls("logout"))

	// Third process: nothing left
	third, err := app.New(ctx, cfg)
	require.NoError(t, err)
	defer third.Close()

	_, err = third.Sessions.Current()
	assert.ErrorIs(t, err, session.ErrNoSession)
	_, err = third.Client.ListLinks(ctx, domain.LinkQuery{Limit: 10, Order: domain.OrderCreatedAt})
	assert.Error(t, err)
}

func TestIntegration_ErrorCases(t *testing.T) {
	dbPath := fmt.Sprintf("/tmp/test_goshort_%d.db", time.Now().UnixNano())
	defer os.Remove(dbPath)

	api := apitest.New()
	defer api.Close()
	api.AddUser("alice", "alice@example.com", "password")

	ctx := context.Background()
	a, err := app.New(ctx, newConfig(api.APIURL(), dbPath))
	require.NoError(t, err)
	defer a.Close()

	// Bad credentials leave no session behind
	form := &viewmodel.LoginForm{Email: "alice@example.com", Password: "wrong"}
	_, err = viewmodel.NewAuth(a.Client, a.Sessions).Login(ctx, form)
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", form.Error)
	_, err = a.Sessions.Current()
	assert.ErrorIs(t, err, session.ErrNoSession)

	// Logout survives an unreachable server
	_, err = viewmodel.NewAuth(a.Client, a.Sessions).Login(ctx, &viewmodel.LoginForm{Email: "alice@example.com", Password: "password"})
	require.NoError(t, err)
	api.Fail("logout", apitest.Failure{Status: 503, Message: "maintenance"})

	assert.Equal(t, session.LoginPath, a.Logout(ctx))
	_, err = a.Sessions.Current()
	assert.ErrorIs(t, err, session.ErrNoSession)

	// A stored record for an expired session is purged on start-up
	expired := session.NewStore(a.Storage, nil)
	require.NoError(t, expired.Save(ctx, domain.Identity{Username: "alice", Email: "alice@example.com", Role: "user"}, time.Now().Add(-time.Minute)))
	_, ok := expired.Load(ctx)
	assert.False(t, ok)
	_, exists, err := a.Storage.GetItem(ctx, session.StorageKey)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIntegration_ConcurrentNavigation(t *testing.T) {
	dbPath := fmt.Sprintf("/tmp/test_goshort_%d.db", time.Now().UnixNano())
	defer os.Remove(dbPath)

	api := apitest.New()
	defer api.Close()
	api.AddUser("alice", "alice@example.com", "password")
	api.AddLinks("alice@example.com", 95)

	ctx := context.Background()
	a, err := app.New(ctx, newConfig(api.APIURL(), dbPath))
	require.NoError(t, err)
	defer a.Close()

	_, err = viewmodel.NewAuth(a.Client, a.Sessions).Login(ctx, &viewmodel.LoginForm{Email: "alice@example.com", Password: "password"})
	require.NoError(t, err)

	dashboard := viewmodel.NewDashboard(a.Client, viewmodel.NewNotices(0), viewmodel.DefaultPageSize)

	var wg sync.WaitGroup
	for page := 1; page <= 10; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			assert.NoError(t, dashboard.SetPage(ctx, page))
		}(page)
	}
	wg.Wait()

	// Whatever order the responses arrived in, the displayed links belong
	// to the displayed page
	state := dashboard.State()
	assert.Equal(t, 10, state.TotalPages)
	assert.False(t, state.Loading)

	page, err := a.Client.ListLinks(ctx, domain.LinkQuery{
		Limit:  viewmodel.DefaultPageSize,
		Offset: (state.Page - 1) * viewmodel.DefaultPageSize,
		Order:  domain.OrderCreatedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, page.Links, state.Links)
}
