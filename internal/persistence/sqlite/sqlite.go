// Package sqlite stores students and their weekly sessions in a SQLite file.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/tutor-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/tutor-scheduler/internal/persistence/sqlite/migrations"
)

// Storage bundles the connection pool with the repositories built on it.
type Storage struct {
	*StudentRepository

	pool *ConnectionPool
}

// Open opens (creating if needed) the database file at path with default settings.
func Open(ctx context.Context, path string) (*Storage, error) {
	return OpenWithConfig(ctx, migration.DefaultSQLiteConfig(path))
}

// OpenWithConfig opens the database described by config.
func OpenWithConfig(ctx context.Context, config migration.SQLiteConfig) (*Storage, error) {
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Storage{StudentRepository: NewStudentRepository(pool), pool: pool}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// Ping checks the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies every embedded migration that has not run yet.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) ([]string, error) {
	applied, err := s.migrator(logger).RunMigrations(ctx)
	if err != nil {
		return applied, fmt.Errorf("migrate: %w", err)
	}
	return applied, nil
}

// MigrationStatus reports applied and pending migrations without changing anything.
func (s *Storage) MigrationStatus(ctx context.Context) (*migration.Status, error) {
	return s.migrator(nil).Status(ctx)
}

func (s *Storage) migrator(logger *slog.Logger) *migration.Manager {
	scanner := migration.NewFileScanner(migrations.FS, ".")
	return migration.NewManager(scanner, migration.NewSQLiteExecutor(s.pool.DB()), logger)
}
