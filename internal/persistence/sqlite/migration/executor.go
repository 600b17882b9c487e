package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteExecutor implements the Executor interface for SQLite databases
type SQLiteExecutor struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteExecutor creates a new SQLite migration executor
func NewSQLiteExecutor(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db, now: time.Now}
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist
func (e *SQLiteExecutor) InitializeVersionTable(ctx context.Context) error {
	const createTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			applied_at TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			execution_time_ms INTEGER NOT NULL DEFAULT 0
		)
	`
	if _, err := e.db.ExecContext(ctx, createTableSQL); err != nil {
		return NewMigrationError("", "schema_migrations", "create version table", err)
	}
	return nil
}

// ExecuteMigration runs every statement of the migration and records it in one transaction
func (e *SQLiteExecutor) ExecuteMigration(ctx context.Context, migration Migration) (time.Duration, error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return 0, NewMigrationError(migration.Version, migration.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}

	started := e.now()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewMigrationError(migration.Version, migration.FilePath, "begin transaction", err)
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			rollbackErr := tx.Rollback()
			return 0, NewMigrationError(migration.Version, migration.FilePath,
				fmt.Sprintf("execute statement %d", i+1),
				errors.Join(fmt.Errorf("%w: %w", ErrMigrationFailed, err), rollbackErr))
		}
	}

	elapsed := e.now().Sub(started)
	const insertSQL = `
		INSERT INTO schema_migrations (version, description, applied_at, checksum, execution_time_ms)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, insertSQL,
		migration.Version,
		migration.Description,
		e.now().UTC().Format(time.RFC3339),
		migration.Checksum,
		elapsed.Milliseconds(),
	); err != nil {
		rollbackErr := tx.Rollback()
		return 0, NewMigrationError(migration.Version, migration.FilePath, "record migration", errors.Join(err, rollbackErr))
	}

	if err := tx.Commit(); err != nil {
		return 0, NewMigrationError(migration.Version, migration.FilePath, "commit transaction", err)
	}
	return elapsed, nil
}

// AppliedMigrations returns all applied migration versions with timestamps
func (e *SQLiteExecutor) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	const querySQL = `
		SELECT version, description, applied_at, execution_time_ms, checksum
		FROM schema_migrations
	`
	rows, err := e.db.QueryContext(ctx, querySQL)
	if err != nil {
		return nil, NewMigrationError("", "schema_migrations", "query applied versions", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			m            AppliedMigration
			appliedAtStr string
			executionMs  int64
		)
		if err := rows.Scan(&m.Version, &m.Description, &appliedAtStr, &executionMs, &m.Checksum); err != nil {
			return nil, NewMigrationError("", "schema_migrations", "scan applied migration", err)
		}
		if m.AppliedAt, err = time.Parse(time.RFC3339, appliedAtStr); err != nil {
			return nil, NewMigrationError(m.Version, "schema_migrations", "parse applied_at", err)
		}
		m.ExecutionTime = time.Duration(executionMs) * time.Millisecond
		applied = append(applied, m)
	}
	if err := rows.Err(); err != nil {
		return nil, NewMigrationError("", "schema_migrations", "iterate applied migrations", err)
	}

	sortApplied(applied)
	return applied, nil
}

// splitStatements splits SQL content into individual statements, dropping
// comment-only lines
func splitStatements(sql string) []string {
	var statements []string
	for _, stmt := range strings.Split(stripComments(sql), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
