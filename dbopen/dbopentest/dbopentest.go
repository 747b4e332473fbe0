// Package dbopentest provides database helpers for tests, kept out of the
// dbopen package so production binaries never link the testing package.
package dbopentest

import (
	"database/sql"
	"testing"

	"github.com/houndci/sitecheck/dbopen"
)

// OpenMemory opens an in-memory SQLite database for testing. MaxOpenConns
// is forced to 1 because each new connection to ":memory:" would otherwise
// see a separate database. Closing is registered via t.Cleanup.
func OpenMemory(t testing.TB, opts ...dbopen.Option) *sql.DB {
	t.Helper()
	db, err := dbopen.Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopentest.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
