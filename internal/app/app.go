package app

import (
	"context"
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/joshdurbin/goshort/internal/config"
	"github.com/joshdurbin/goshort/internal/session"
	"github.com/joshdurbin/goshort/internal/storage"
	"github.com/joshdurbin/goshort/internal/storage/memory"
	"github.com/joshdurbin/goshort/internal/storage/redis"
	"github.com/joshdurbin/goshort/internal/storage/sqlite"
	"github.com/joshdurbin/goshort/internal/transport/client"
)

// App holds the components shared by the CLI and the web UI. It is built
// once per process and owns the storage handle.
type App struct {
	Config   *config.Config
	Storage  storage.Storage
	Jar      *client.PersistentJar
	Client   *client.Client
	Sessions *session.Manager
	Registry *prometheus.Registry
}

// OpenStorage opens the configured storage backend
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case storage.DriverSQLite:
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return s, nil
	case storage.DriverRedis:
		s, err := redis.New(ctx, cfg.RedisURL, redis.DefaultPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis storage: %w", err)
		}
		return s, nil
	case storage.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

// New validates cfg, opens storage and wires the API client and the session
// manager. The initial session check has completed when New returns.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	a, err := NewWithStorage(ctx, cfg, store)
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("[ERROR] Failed to close storage: %v", closeErr)
		}
		return nil, err
	}
	return a, nil
}

// NewWithStorage wires the application on top of an already open store
func NewWithStorage(ctx context.Context, cfg *config.Config, store storage.Storage) (*App, error) {
	jar, err := client.NewPersistentJar(ctx, store)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := client.NewMetrics(registry)

	api := client.NewClient(cfg.API.URL,
		client.WithCookieJar(jar),
		client.WithTransport(metrics.InstrumentRoundTripper(nil)),
	)

	sessions := session.NewManager(session.NewStore(store, nil), api)
	sessions.Init(ctx)

	return &App{
		Config:   cfg,
		Storage:  store,
		Jar:      jar,
		Client:   api,
		Sessions: sessions,
		Registry: registry,
	}, nil
}

// Logout ends the session and then drops the credential cookies. The
// remote call needs the cookies, so they are cleared last.
func (a *App) Logout(ctx context.Context) string {
	dest := a.Sessions.Logout(ctx)
	if err := a.Jar.Clear(ctx); err != nil {
		log.Printf("[ERROR] Failed to clear cookies: %v", err)
	}
	return dest
}

// Close releases the storage handle
func (a *App) Close() error {
	if err := a.Storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}
