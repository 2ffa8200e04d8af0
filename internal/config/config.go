package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/joshdurbin/goshort/internal/storage"
)

// Config holds the application configuration
type Config struct {
	API     APIConfig
	Storage StorageConfig
	UI      UIConfig
	Logging LoggingConfig
}

// APIConfig holds the remote API locations
type APIConfig struct {
	URL         string
	LinkBaseURL string
}

// StorageConfig holds local storage configuration
type StorageConfig struct {
	Driver   string
	Path     string
	RedisURL string
}

// UIConfig holds the local web UI configuration
type UIConfig struct {
	Addr     string
	PageSize int
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Verbose bool
}

// Load reads the configuration from the environment, loading a .env file
// first when one exists. Command-line flags override the result.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is fine

	pageSize, err := strconv.Atoi(getEnv("GOSHORT_PAGE_SIZE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid GOSHORT_PAGE_SIZE: %w", err)
	}

	verbose, err := strconv.ParseBool(getEnv("GOSHORT_VERBOSE", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid GOSHORT_VERBOSE: %w", err)
	}

	return &Config{
		API: APIConfig{
			URL:         getEnv("GOSHORT_API_URL", "http://localhost:8080/api/v1"),
			LinkBaseURL: getEnv("GOSHORT_LINK_BASE_URL", "http://localhost:8080"),
		},
		Storage: StorageConfig{
			Driver:   getEnv("GOSHORT_STORE", storage.DriverSQLite),
			Path:     getEnv("GOSHORT_STORE_PATH", "goshort.db"),
			RedisURL: getEnv("GOSHORT_REDIS_URL", ""),
		},
		UI: UIConfig{
			Addr:     getEnv("GOSHORT_UI_ADDR", ":3000"),
			PageSize: pageSize,
		},
		Logging: LoggingConfig{
			Verbose: verbose,
		},
	}, nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if err := validateURL("API URL", c.API.URL); err != nil {
		return err
	}

	if err := validateURL("link base URL", c.API.LinkBaseURL); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case storage.DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path cannot be empty")
		}
	case storage.DriverRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL cannot be empty when using the redis store")
		}
	case storage.DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	if c.UI.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got: %d", c.UI.PageSize)
	}

	return nil
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got: %q", name, raw)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
