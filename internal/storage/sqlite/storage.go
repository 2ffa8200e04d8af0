package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joshdurbin/goshort/internal/storage"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// connParams apply to every pooled connection. CLI invocations and the UI
// server may share the file.
const connParams = "_busy_timeout=5000&_journal_mode=WAL"

// Storage implements storage.Storage using SQLite
type Storage struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at databasePath and brings its
// schema up to date
func New(databasePath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dsn(databasePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Storage{db: db}, nil
}

func dsn(databasePath string) string {
	if strings.Contains(databasePath, "?") {
		return databasePath + "&" + connParams
	}
	return databasePath + "?" + connParams
}

// GetItem returns the value stored under key
func (s *Storage) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM items WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get item: %w", err)
	}
	return value, true, nil
}

// SetItem stores value under key
func (s *Storage) SetItem(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set item: %w", err)
	}
	return nil
}

// RemoveItem deletes key
func (s *Storage) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// schemaStep is one embedded migrations/NNN_name.sql file
type schemaStep struct {
	version int
	name    string
	sql     string
}

// schemaSteps returns the embedded steps in version order. Files that do not
// follow the NNN_name.sql pattern are ignored.
func schemaSteps() ([]schemaStep, error) {
	files, err := fs.Glob(schemaFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	steps := make([]schemaStep, 0, len(files))
	for _, file := range files {
		prefix, rest, ok := strings.Cut(path.Base(file), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		content, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		steps = append(steps, schemaStep{
			version: version,
			name:    strings.TrimSuffix(rest, ".sql"),
			sql:     string(content),
		})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

// migrate applies the pending steps in one transaction, recording each in
// schema_migrations
func migrate(ctx context.Context, db *sql.DB) error {
	steps, err := schemaSteps()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, step := range steps {
		var applied bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)",
			step.version).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration %d: %w", step.version, err)
		}
		if applied {
			continue
		}

		if _, err := tx.ExecContext(ctx, step.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d_%s: %w", step.version, step.name, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			step.version, step.name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", step.version, err)
		}
	}

	return tx.Commit()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)
