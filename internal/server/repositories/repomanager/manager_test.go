package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/govsync/internal/server/config"
	"github.com/dmitrijs2005/govsync/internal/server/repositories/records"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNew_ByDriver(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{"pgx", "pgx"},
		{"postgres", "pgx"},
		{"sqlite", "sqlite"},
		{"sqlite3", "sqlite"},
	}
	for _, tt := range tests {
		m, err := New(tt.driver)
		if err != nil {
			t.Fatalf("New(%q) error: %v", tt.driver, err)
		}
		if m.DriverName() != tt.want {
			t.Fatalf("New(%q).DriverName() = %q, want %q", tt.driver, m.DriverName(), tt.want)
		}
	}

	if _, err := New("mongo"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestNew_AcceptsEveryConfiguredDriver(t *testing.T) {
	for _, driver := range config.DatabaseDrivers {
		if _, err := New(driver); err != nil {
			t.Fatalf("config accepts %q but New rejects it: %v", driver, err)
		}
	}
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	for _, m := range []RepositoryManager{NewPostgresRepositoryManager(), NewSQLiteRepositoryManager()} {
		if r := m.Records(db); r == nil {
			t.Fatal("Records() nil")
		}
		var _ records.Repository = m.Records(db)
	}
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	for _, m := range []RepositoryManager{NewPostgresRepositoryManager(), NewSQLiteRepositoryManager()} {
		if err := m.RunMigrations(context.Background(), db); err != nil {
			t.Fatalf("RunMigrations error: %v", err)
		}
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestRunMigrations_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite", "file:repomanager_migrations?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	goose.SetLogger(goose.NopLogger())

	if err := NewSQLiteRepositoryManager().RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM indexed_records`).Scan(&n); err != nil {
		t.Fatalf("table missing: %v", err)
	}
}
