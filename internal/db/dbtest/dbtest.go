// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/reyschwartz19/OpTracker/internal/db"
)

// New returns a fresh, fully migrated database in t.TempDir(). It is closed
// when the test ends.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)"
	conn, err := db.Init(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close(conn) })

	err = db.RunMigrations(context.Background(), conn.DB, db.DriverSQLite)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return conn
}
