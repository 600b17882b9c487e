package migration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  FileScanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a migration manager. A nil logger discards output.
func NewManager(scanner FileScanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With(slog.String("component", "migration")),
	}
}

// RunMigrations executes all pending migrations in sequential order and
// returns the versions it applied.
func (m *Manager) RunMigrations(ctx context.Context) ([]string, error) {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}

	if len(status.Pending) == 0 {
		m.logger.InfoContext(ctx, "schema up to date", slog.String("version", status.CurrentVersion))
		return nil, nil
	}

	m.logger.InfoContext(ctx, "applying migrations",
		slog.String("from_version", status.CurrentVersion),
		slog.Int("pending", len(status.Pending)),
	)

	applied := make([]string, 0, len(status.Pending))
	for _, migration := range status.Pending {
		elapsed, err := m.executor.ExecuteMigration(ctx, migration)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				slog.String("version", migration.Version),
				slog.String("file", migration.FilePath),
				slog.Any("error", err),
			)
			return applied, err
		}
		m.logger.InfoContext(ctx, "migration applied",
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
			slog.Duration("elapsed", elapsed),
		)
		applied = append(applied, migration.Version)
	}

	m.logger.InfoContext(ctx, "migrations complete",
		slog.Int("applied", len(applied)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return applied, nil
}

// Status compares the scanned migrations against the version table. It fails
// when an applied migration is missing from the files or its checksum changed.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("initialize version table: %w", err)
	}

	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("scan migrations: %w", err)
	}

	applied, err := m.executor.AppliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}

	byVersion := make(map[int]Migration, len(available))
	for _, migration := range available {
		byVersion[versionNumber(migration.Version)] = migration
	}

	done := make(map[int]bool, len(applied))
	status := &Status{Applied: applied}
	for _, a := range applied {
		number := versionNumber(a.Version)
		file, ok := byVersion[number]
		if !ok {
			return nil, NewMigrationError(a.Version, "", "verify applied",
				fmt.Errorf("%w: version %s has no migration file", ErrUnknownVersion, a.Version))
		}
		if a.Checksum != "" && a.Checksum != file.Checksum {
			return nil, NewMigrationError(a.Version, file.FilePath, "verify applied",
				fmt.Errorf("%w: recorded %s, file %s", ErrChecksumMismatch, a.Checksum, file.Checksum))
		}
		done[number] = true
		status.CurrentVersion = a.Version
	}

	for _, migration := range available {
		if !done[versionNumber(migration.Version)] {
			status.Pending = append(status.Pending, migration)
		}
	}
	return status, nil
}

func sortApplied(applied []AppliedMigration) {
	sort.Slice(applied, func(i, j int) bool {
		return versionNumber(applied[i].Version) < versionNumber(applied[j].Version)
	})
}
