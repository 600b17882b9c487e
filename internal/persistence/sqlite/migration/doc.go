// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files are read from an fs.FS (usually an embed.FS) and must be
// named {version}_{description}.sql, e.g. "001_create_students.sql". An
// optional "-- Description:" comment at the top of a file overrides the
// description taken from the file name.
//
// Applied versions are tracked in a schema_migrations table together with the
// checksum of the file that was applied. Each migration runs in its own
// transaction and is recorded in that same transaction.
//
// Example usage:
//
//	scanner := migration.NewFileScanner(migrations.FS, ".")
//	manager := migration.NewManager(scanner, migration.NewSQLiteExecutor(db), logger)
//	if _, err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
