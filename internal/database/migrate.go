package database

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrDirtySchema means an earlier migration failed halfway and needs a
// manual `migrate force` before the service can start.
var ErrDirtySchema = errors.New("database schema is dirty")

// RunMigrations brings the catalog schema (venues, embeddings, social
// signals and the recommendation log) up to date.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+strings.TrimPrefix(migrationsPath, "file://"), dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()
	m.Log = migrateLogger{}

	from, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	case dirty:
		return fmt.Errorf("%w at version %d", ErrDirtySchema, from)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("database schema up to date", "version", from)
			return nil
		}
		return fmt.Errorf("running migrations: %w", err)
	}

	to, _, _ := m.Version()
	slog.Info("database migrations applied", "from", from, "to", to)
	return nil
}

// migrateLogger routes golang-migrate output through slog at debug level.
type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...any) {
	slog.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrate")
}

func (migrateLogger) Verbose() bool { return false }
