// Package repomanager picks the record repository implementation and the
// goose dialect for the configured database driver.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/govsync/internal/dbx"
	"github.com/dmitrijs2005/govsync/internal/server/migrations"
	"github.com/dmitrijs2005/govsync/internal/server/repositories/records"
)

type RepositoryManager interface {
	// DriverName is the database/sql driver to open the DSN with.
	DriverName() string
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
}

// New returns the manager for driver: "pgx" (or "postgres") or "sqlite"
// (or "sqlite3"). config.DatabaseDrivers lists the same names.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case "pgx", "postgres":
		return NewPostgresRepositoryManager(), nil
	case "sqlite", "sqlite3":
		return NewSQLiteRepositoryManager(), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func runMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
