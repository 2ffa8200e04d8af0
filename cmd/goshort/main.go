package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joshdurbin/goshort/internal/app"
	"github.com/joshdurbin/goshort/internal/config"
	"github.com/joshdurbin/goshort/internal/domain"
	"github.com/joshdurbin/goshort/internal/transport/cli"
	httpTransport "github.com/joshdurbin/goshort/internal/transport/http"
	"github.com/joshdurbin/goshort/internal/viewmodel"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:               "goshort",
	Short:             "Client for the goshort URL shortening API",
	Long:              "Log in, shorten links and manage your short links from the terminal or a local web UI",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session locally",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the stored session",
	Args:  cobra.NoArgs,
	RunE:  withCommands(func(ctx context.Context, c *cli.Commands, _ []string) error { return c.Logout(ctx) }),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account",
	Args:  cobra.NoArgs,
	RunE:  withCommands(func(ctx context.Context, c *cli.Commands, _ []string) error { return c.Whoami(ctx) }),
}

var shortenCmd = &cobra.Command{
	Use:   "shorten [URL]",
	Short: "Shorten a single URL",
	Args:  cobra.ExactArgs(1),
	RunE:  withCommands(func(ctx context.Context, c *cli.Commands, args []string) error { return c.Shorten(ctx, args[0]) }),
}

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Manage your short links",
}

var linksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of your links",
	Args:  cobra.NoArgs,
	RunE:  runLinksList,
}

var linksCreateCmd = &cobra.Command{
	Use:   "create [URL]",
	Short: "Create a short link",
	Args:  cobra.ExactArgs(1),
	RunE:  runLinksCreate,
}

var linksStatusCmd = &cobra.Command{
	Use:   "status [ID] [on|off]",
	Short: "Activate or deactivate a link",
	Args:  cobra.ExactArgs(2),
	RunE: withCommands(func(ctx context.Context, c *cli.Commands, args []string) error {
		active, err := cli.ParseStatus(args[1])
		if err != nil {
			return err
		}
		return c.SetStatus(ctx, args[0], active)
	}),
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Start the local web UI",
	Args:  cobra.NoArgs,
	RunE:  runUI,
}

func init() {
	// Global flags; defaults come from the environment
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (env GOSHORT_API_URL)")
	rootCmd.PersistentFlags().String("link-base-url", "", "Base URL of short links (env GOSHORT_LINK_BASE_URL)")
	rootCmd.PersistentFlags().String("store", "", "Local storage driver: sqlite, memory or redis (env GOSHORT_STORE)")
	rootCmd.PersistentFlags().String("store-path", "", "SQLite storage file (env GOSHORT_STORE_PATH)")
	rootCmd.PersistentFlags().String("redis-url", "", "Redis URL for the redis driver (env GOSHORT_REDIS_URL)")
	rootCmd.PersistentFlags().Int("page-size", 0, "Links per page (env GOSHORT_PAGE_SIZE)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging (env GOSHORT_VERBOSE)")

	loginCmd.Flags().StringP("email", "e", "", "Account email")
	loginCmd.Flags().StringP("password", "p", "", "Account password (prompted when empty)")

	registerCmd.Flags().StringP("username", "u", "", "Username")
	registerCmd.Flags().StringP("email", "e", "", "Account email")
	registerCmd.Flags().StringP("password", "p", "", "Account password (prompted when empty)")
	registerCmd.Flags().String("confirm-password", "", "Password confirmation (prompted when empty)")

	linksListCmd.Flags().Int("page", 1, "Page number")
	linksListCmd.Flags().String("order", string(domain.OrderCreatedAt), "Sort column: created_at, updated_at, title or is_active")
	linksListCmd.Flags().Bool("asc", false, "Sort ascending")
	linksListCmd.Flags().String("search", "", "Search term")

	linksCreateCmd.Flags().String("title", "", "Link title")
	linksCreateCmd.Flags().String("code", "", "Custom short code")
	linksCreateCmd.Flags().String("click-limit", "", "Maximum number of clicks")
	linksCreateCmd.Flags().String("expire-at", "", "Expiry (RFC 3339 or 2006-01-02T15:04)")

	uiCmd.Flags().String("addr", "", "Listen address (env GOSHORT_UI_ADDR)")

	linksCmd.AddCommand(linksListCmd, linksCreateCmd, linksStatusCmd)
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, shortenCmd, linksCmd, uiCmd)
}

// loadConfig reads the environment and lets explicitly set flags override it
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("api-url") {
		loaded.API.URL, _ = flags.GetString("api-url")
	}
	if flags.Changed("link-base-url") {
		loaded.API.LinkBaseURL, _ = flags.GetString("link-base-url")
	}
	if flags.Changed("store") {
		loaded.Storage.Driver, _ = flags.GetString("store")
	}
	if flags.Changed("store-path") {
		loaded.Storage.Path, _ = flags.GetString("store-path")
	}
	if flags.Changed("redis-url") {
		loaded.Storage.RedisURL, _ = flags.GetString("redis-url")
	}
	if flags.Changed("page-size") {
		loaded.UI.PageSize, _ = flags.GetInt("page-size")
	}
	if flags.Changed("verbose") {
		loaded.Logging.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("addr") {
		loaded.UI.Addr, _ = flags.GetString("addr")
	}

	cfg = loaded
	return nil
}

// openApp builds the application; callers must Close it
func openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return a, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		log.Printf("Error closing storage: %v", err)
	}
}

// withCommands runs fn with a short-lived app and a 30 second deadline
func withCommands(fn func(ctx context.Context, c *cli.Commands, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp(a)

		return fn(ctx, cli.NewCommands(a, cmd.OutOrStdout()), args)
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	in := bufio.NewReader(cmd.InOrStdin())
	var err error
	if email == "" {
		if email, err = prompt(cmd, in, "Email: "); err != nil {
			return err
		}
	}
	if password == "" {
		if password, err = promptSecret(cmd, in, "Password: "); err != nil {
			return err
		}
	}

	return withCommands(func(ctx context.Context, c *cli.Commands, _ []string) error {
		return c.Login(ctx, email, password)
	})(cmd, args)
}

func runRegister(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	confirm, _ := cmd.Flags().GetString("confirm-password")

	in := bufio.NewReader(cmd.InOrStdin())
	fields := []struct {
		value  *string
		label  string
		secret bool
	}{
		{&username, "Username: ", false},
		{&email, "Email: ", false},
		{&password, "Password: ", true},
		{&confirm, "Confirm password: ", true},
	}
	for _, f := range fields {
		if *f.value != "" {
			continue
		}
		read := prompt
		if f.secret {
			read = promptSecret
		}
		v, err := read(cmd, in, f.label)
		if err != nil {
			return err
		}
		*f.value = v
	}

	return withCommands(func(ctx context.Context, c *cli.Commands, _ []string) error {
		return c.Register(ctx, username, email, password, confirm)
	})(cmd, args)
}

func runLinksList(cmd *cobra.Command, args []string) error {
	page, _ := cmd.Flags().GetInt("page")
	rawOrder, _ := cmd.Flags().GetString("order")
	asc, _ := cmd.Flags().GetBool("asc")
	search, _ := cmd.Flags().GetString("search")

	order, err := domain.ParseOrder(rawOrder)
	if err != nil {
		return err
	}

	params := viewmodel.Params{Page: page, Order: order, Ascending: asc, Search: search}
	return withCommands(func(ctx context.Context, c *cli.Commands, _ []string) error {
		return c.List(ctx, params)
	})(cmd, args)
}

func runLinksCreate(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	code, _ := cmd.Flags().GetString("code")
	clickLimit, _ := cmd.Flags().GetString("click-limit")
	expireAt, _ := cmd.Flags().GetString("expire-at")

	form := viewmodel.LinkForm{
		URL:        args[0],
		Title:      title,
		ShortCode:  code,
		ClickLimit: clickLimit,
		ExpireAt:   expireAt,
	}
	return withCommands(func(ctx context.Context, c *cli.Commands, _ []string) error {
		return c.Create(ctx, form)
	})(cmd, args)
}

func runUI(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer closeApp(a)

	log.Printf("Starting goshort UI with config: api=%s store=%s", cfg.API.URL, cfg.Storage.Driver)

	server, err := httpTransport.NewServer(a, cfg.UI.Addr, cfg.Logging.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create UI server: %w", err)
	}

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}
	}

	log.Println("UI stopped")
	return nil
}

func prompt(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// terminal hooks, replaced in tests
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// promptSecret reads without echo when stdin is a terminal and falls back to
// a plain prompt for pipes
func promptSecret(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(int(f.Fd())) {
		return prompt(cmd, in, label)
	}

	fmt.Fprint(cmd.ErrOrStderr(), label)
	secret, err := readPassword(int(f.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(secret), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
