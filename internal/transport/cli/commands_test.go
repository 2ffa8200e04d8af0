package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/goshort/internal/apitest"
	"github.com/joshdurbin/goshort/internal/app"
	"github.com/joshdurbin/goshort/internal/config"
	"github.com/joshdurbin/goshort/internal/domain"
	"github.com/joshdurbin/goshort/internal/storage"
	"github.com/joshdurbin/goshort/internal/storage/memory"
	"github.com/joshdurbin/goshort/internal/viewmodel"
)

type fixture struct {
	api      *apitest.Server
	app      *app.App
	out      *bytes.Buffer
	commands *Commands
}

func setup(t *testing.T) *fixture {
	t.Helper()

	api := apitest.New()
	t.Cleanup(api.Close)
	api.AddUser("alice", "alice@example.com", "password")

	cfg := &config.Config{
		API:     config.APIConfig{URL: api.APIURL(), LinkBaseURL: "http://sho.rt"},
		Storage: config.StorageConfig{Driver: storage.DriverMemory},
		UI:      config.UIConfig{PageSize: 10},
	}
	a, err := app.NewWithStorage(context.Background(), cfg, memory.New())
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &fixture{api: api, app: a, out: out, commands: NewCommands(a, out)}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.commands.Login(context.Background(), "alice@example.com", "password"))
	f.out.Reset()
}

func TestCommands_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.commands.Login(ctx, "alice@example.com", "password"))

		assert.Contains(t, f.out.String(), "Logged in as alice")
		assert.Contains(t, f.out.String(), "Dashboard: /alice")
	})

	t.Run("bad credentials", func(t *testing.T) {
		f := setup(t)
		err := f.commands.Login(ctx, "alice@example.com", "nope")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid email or password")
		_, err = f.app.Sessions.Current()
		assert.Error(t, err)
	})

	t.Run("refused while logged in", func(t *testing.T) {
		f := setup(t)
		f.login(t)

		err := f.commands.Login(ctx, "alice@example.com", "password")
		assert.ErrorIs(t, err, ErrAlreadyLoggedIn)
		assert.Contains(t, err.Error(), "/alice")
		assert.Equal(t, 1, f.api.Calls("login"))
	})
}

func TestCommands_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := setup(t)
		require.NoError(t, f.commands.Register(ctx, "bob", "bob@example.com", "secret1", "secret1"))
		assert.Contains(t, f.out.String(), "Account bob created")

		require.NoError(t, f.commands.Login(ctx, "bob@example.com", "secret1"))
	})

	t.Run("password mismatch", func(t *testing.T) {
		f := setup(t)
		err := f.commands.Register(ctx, "bob", "bob@example.com", "secret1", "secret2")

		assert.ErrorIs(t, err, viewmodel.ErrPasswordMismatch)
		assert.Equal(t, 0, f.api.Calls("register"))
	})

	t.Run("server message", func(t *testing.T) {
		f := setup(t)
		err := f.commands.Register(ctx, "alice2", "alice@example.com", "secret1", "secret1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "email already registered")
	})
}

func TestCommands_Logout(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.login(t)

	require.NoError(t, f.commands.Logout(ctx))
	assert.Equal(t, "Logged out\n", f.out.String())
	assert.Equal(t, 1, f.api.Calls("logout"))

	assert.ErrorIs(t, f.commands.List(ctx, viewmodel.Params{}), ErrNotLoggedIn)
}

func TestCommands_LogoutServerFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.login(t)
	f.api.Fail("logout", apitest.Failure{Status: 500, Message: "boom"})

	require.NoError(t, f.commands.Logout(ctx))
	_, err := f.app.Sessions.Current()
	assert.Error(t, err)
}

func TestCommands_Whoami(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	assert.ErrorIs(t, f.commands.Whoami(ctx), ErrNotLoggedIn)

	f.login(t)
	require.NoError(t, f.commands.Whoami(ctx))

	out := f.out.String()
	assert.Contains(t, out, "Username: alice")
	assert.Contains(t, out, "Email: alice@example.com")
	assert.Contains(t, out, "Role: user")
	assert.Contains(t, out, "Access Token Issuer: goshort-apitest")
}

func TestCommands_List(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	assert.ErrorIs(t, f.commands.List(ctx, viewmodel.Params{}), ErrNotLoggedIn)
	assert.Equal(t, 0, f.api.Calls("list"))

	f.login(t)
	require.NoError(t, f.commands.List(ctx, viewmodel.Params{}))
	assert.Contains(t, f.out.String(), "No links found")

	f.api.AddLinks("alice@example.com", 25)
	f.out.Reset()
	require.NoError(t, f.commands.List(ctx, viewmodel.Params{Page: 3, Order: domain.OrderCreatedAt}))

	out := f.out.String()
	assert.Contains(t, out, "Page 3 of 3 (25 links)")
	// newest first: page 3 holds the five oldest links
	assert.Contains(t, out, "https://example.com/page/0")
	assert.NotContains(t, out, "https://example.com/page/24")
}

func TestCommands_ListFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.login(t)
	f.api.Fail("list", apitest.Failure{Status: 500, Message: "database down"})

	err := f.commands.List(ctx, viewmodel.Params{})
	require.Error(t, err)
	assert.Contains(t, f.out.String(), "Error: Failed to load your links")
}

func TestCommands_CreateAndStatus(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	assert.ErrorIs(t, f.commands.Create(ctx, viewmodel.LinkForm{URL: "https://example.com"}), ErrNotLoggedIn)

	f.login(t)
	require.NoError(t, f.commands.Create(ctx, viewmodel.LinkForm{
		URL:        "https://example.com/docs",
		Title:      "Docs",
		ShortCode:  "docs",
		ClickLimit: "5",
	}))

	out := f.out.String()
	assert.Contains(t, out, "Short URL: http://sho.rt/docs")
	assert.Contains(t, out, "Title: Docs")
	assert.Contains(t, out, "Click Limit: 5")

	page, err := f.app.Client.ListLinks(ctx, domain.LinkQuery{Limit: 10, Order: domain.OrderCreatedAt})
	require.NoError(t, err)
	require.Len(t, page.Links, 1)

	f.out.Reset()
	require.NoError(t, f.commands.SetStatus(ctx, page.Links[0].ID.String(), false))
	assert.Equal(t, "Link docs is now inactive\n", f.out.String())

	active, found := f.api.Active("docs")
	require.True(t, found)
	assert.False(t, active)

	assert.ErrorContains(t, f.commands.SetStatus(ctx, "not-a-uuid", true), "invalid link ID")
	assert.ErrorIs(t, f.commands.Create(ctx, viewmodel.LinkForm{}), viewmodel.ErrURLRequired)
}

func TestCommands_Shorten(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	err := f.commands.Shorten(ctx, "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing access token")

	f.login(t)
	require.NoError(t, f.commands.Shorten(ctx, "https://example.com"))
	assert.Regexp(t, `^Short URL: http://sho\.rt/c\d+\n$`, f.out.String())
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"on", "ON", "active", "true"} {
		active, err := ParseStatus(s)
		require.NoError(t, err)
		assert.True(t, active, s)
	}
	for _, s := range []string{"off", "inactive", "false"} {
		active, err := ParseStatus(s)
		require.NoError(t, err)
		assert.False(t, active, s)
	}
	_, err := ParseStatus("maybe")
	assert.Error(t, err)
}
