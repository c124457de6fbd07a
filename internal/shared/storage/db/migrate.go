package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFiles embed.FS

// goose keeps its base FS and dialect in package state.
var migrateMu sync.Mutex

// RunMigrations applies the embedded SQL migrations for driver via goose.
// If database is nil, it's a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, driver string) error {
	if database == nil {
		return nil
	}
	dialect, dir := "postgres", "postgres"
	if driver == DriverSQLite {
		dialect, dir = "sqlite3", "sqlite"
	}
	migrateMu.Lock()
	defer migrateMu.Unlock()
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, database, path.Join("migrations", dir)); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return nil
}

// OpenSQLite connects to a sqlite database and brings its schema up to date.
// A dsn of ":memory:" yields a private in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	database, err := Connect(ctx, DriverSQLite, dsn, DefaultMigrateOptions())
	if err != nil {
		return nil, err
	}
	if _, err := database.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		database.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := RunMigrations(ctx, database, DriverSQLite); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
