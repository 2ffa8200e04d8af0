package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshdurbin/goshort/internal/app"
	"github.com/joshdurbin/goshort/internal/domain"
	"github.com/joshdurbin/goshort/internal/router"
	"github.com/joshdurbin/goshort/internal/transport/client"
	"github.com/joshdurbin/goshort/internal/viewmodel"
)

var (
	// ErrAlreadyLoggedIn is returned by login and register while a session exists
	ErrAlreadyLoggedIn = errors.New("already logged in")
	// ErrNotLoggedIn is returned by commands that need a session
	ErrNotLoggedIn = errors.New("not logged in; run 'goshort login' first")
)

// Commands provides command-line operations for the client
type Commands struct {
	app *app.App
	out io.Writer
}

// NewCommands creates a new Commands instance writing to out
func NewCommands(a *app.App, out io.Writer) *Commands {
	return &Commands{
		app: a,
		out: out,
	}
}

// guestOnly refuses when a session exists, naming the dashboard
func (c *Commands) guestOnly() error {
	d := router.GuestOnly(c.app.Sessions)
	if d.Outcome == router.Redirect {
		return fmt.Errorf("%w (dashboard: %s)", ErrAlreadyLoggedIn, d.Location)
	}
	return nil
}

// userOnly refuses without a session
func (c *Commands) userOnly() error {
	if d := router.UserOnly(c.app.Sessions, ""); d.Outcome != router.Render {
		return ErrNotLoggedIn
	}
	return nil
}

// Login authenticates and stores the session
func (c *Commands) Login(ctx context.Context, email, password string) error {
	if err := c.guestOnly(); err != nil {
		return err
	}

	form := &viewmodel.LoginForm{Email: email, Password: password}
	dest, err := viewmodel.NewAuth(c.app.Client, c.app.Sessions).Login(ctx, form)
	if err != nil {
		return formError(form.Error, err)
	}

	identity, err := c.app.Sessions.Current()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Logged in as %s\n", identity.DisplayName())
	fmt.Fprintf(c.out, "Dashboard: %s\n", dest)
	return nil
}

// Register creates an account
func (c *Commands) Register(ctx context.Context, username, email, password, confirm string) error {
	if err := c.guestOnly(); err != nil {
		return err
	}

	form := &viewmodel.RegisterForm{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: confirm,
	}
	if _, err := viewmodel.NewAuth(c.app.Client, c.app.Sessions).Register(ctx, form); err != nil {
		return formError(form.Error, err)
	}

	fmt.Fprintf(c.out, "Account %s created\n", username)
	fmt.Fprintf(c.out, "Log in with: goshort login --email %s\n", email)
	return nil
}

// Logout ends the session locally and on the server
func (c *Commands) Logout(ctx context.Context) error {
	c.app.Logout(ctx)
	fmt.Fprintln(c.out, "Logged out")
	return nil
}

// Whoami displays the stored session and the credential token claims
func (c *Commands) Whoami(ctx context.Context) error {
	s, err := c.app.Sessions.Session()
	if err != nil {
		return ErrNotLoggedIn
	}

	fmt.Fprintf(c.out, "Username: %s\n", s.Identity.Username)
	fmt.Fprintf(c.out, "Name: %s\n", s.Identity.DisplayName())
	fmt.Fprintf(c.out, "Email: %s\n", s.Identity.Email)
	fmt.Fprintf(c.out, "Role: %s\n", s.Identity.Role)
	fmt.Fprintf(c.out, "Session Expires: %s\n", s.ExpiresAt.Local().Format(time.RFC3339))

	claims, err := client.AccessTokenClaims(c.app.Jar, c.app.Client.APIURL())
	if err != nil {
		fmt.Fprintf(c.out, "Access Token: none\n")
		return nil
	}
	if claims.ExpiresAt != nil {
		fmt.Fprintf(c.out, "Access Token Expires: %s\n", claims.ExpiresAt.Local().Format(time.RFC3339))
	}
	if claims.Issuer != "" {
		fmt.Fprintf(c.out, "Access Token Issuer: %s\n", claims.Issuer)
	}
	return nil
}

// Shorten creates a single short link and prints it
func (c *Commands) Shorten(ctx context.Context, rawURL string) error {
	landing := viewmodel.NewLanding(c.app.Client, c.app.Sessions, c.app.Config.API.LinkBaseURL)
	short, err := landing.Shorten(ctx, rawURL)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Short URL: %s\n", short)
	return nil
}

// List displays one page of the user's links in a table format
func (c *Commands) List(ctx context.Context, params viewmodel.Params) error {
	if err := c.userOnly(); err != nil {
		return err
	}

	dashboard := viewmodel.NewDashboard(c.app.Client, viewmodel.NewPrinter(c.out), c.app.Config.UI.PageSize)
	if err := dashboard.Apply(ctx, params); err != nil {
		return err
	}
	state := dashboard.State()

	if len(state.Links) == 0 {
		fmt.Fprintln(c.out, "No links found")
		return nil
	}

	fmt.Fprintf(c.out, "%-36s %-10s %-45s %-20s %-8s %s\n", "ID", "Code", "Original URL", "Created At", "Active", "Clicks")
	fmt.Fprintln(c.out, strings.Repeat("-", 130))

	for _, link := range state.Links {
		originalURL := link.OriginalURL
		if len(originalURL) > 45 {
			originalURL = originalURL[:42] + "..."
		}

		fmt.Fprintf(c.out, "%-36s %-10s %-45s %-20s %-8s %d\n",
			link.ID,
			link.ShortCode,
			originalURL,
			link.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			yesNo(link.IsActive),
			link.TotalClicks,
		)
	}

	fmt.Fprintf(c.out, "\nPage %d of %d (%d links)\n", state.Page, state.TotalPages, state.Total)
	return nil
}

// Create creates a link from the full form and prints it
func (c *Commands) Create(ctx context.Context, form viewmodel.LinkForm) error {
	if err := c.userOnly(); err != nil {
		return err
	}

	req, err := form.Request()
	if err != nil {
		return err
	}

	link, err := c.app.Client.CreateLink(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	printLink(c.out, link, c.app.Config.API.LinkBaseURL)
	return nil
}

// SetStatus activates or deactivates a link
func (c *Commands) SetStatus(ctx context.Context, rawID string, active bool) error {
	if err := c.userOnly(); err != nil {
		return err
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid link ID %q: %w", rawID, err)
	}

	link, err := c.app.Client.SetLinkActive(ctx, id, active)
	if err != nil {
		return fmt.Errorf("failed to update link status: %w", err)
	}

	fmt.Fprintf(c.out, "Link %s is now %s\n", link.ShortCode, activeLabel(link.IsActive))
	return nil
}

// ParseStatus maps "on"/"off" (and the usual synonyms) to an active flag
func ParseStatus(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "active", "enable", "true":
		return true, nil
	case "off", "inactive", "disable", "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid status %q: use on or off", s)
	}
}

func printLink(w io.Writer, link *domain.Link, base string) {
	fmt.Fprintf(w, "Short link created:\n")
	fmt.Fprintf(w, "ID: %s\n", link.ID)
	fmt.Fprintf(w, "Short URL: %s\n", link.ShortURL(base))
	fmt.Fprintf(w, "Original URL: %s\n", link.OriginalURL)
	if link.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", link.Title)
	}
	if link.ClickLimit != nil {
		fmt.Fprintf(w, "Click Limit: %d\n", *link.ClickLimit)
	}
	if link.ExpireAt != nil {
		fmt.Fprintf(w, "Expires At: %s\n", link.ExpireAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Created At: %s\n", link.CreatedAt.Local().Format(time.RFC3339))
}

// formError prefixes err with the message the form would show
func formError(message string, err error) error {
	if message == "" || strings.EqualFold(message, err.Error()) {
		return err
	}
	return fmt.Errorf("%s: %w", message, err)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
