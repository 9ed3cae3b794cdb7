package testutil

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teranos/entityhub/db"
)

// SetupTestDB creates an in-memory SQLite database for testing.
// Uses real migrations to ensure test schema matches production schema.
//
// The pool is pinned to one connection: every new connection to ":memory:"
// would otherwise see its own empty database.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB := SetupEmptyDB(t)

	err := db.Migrate(testDB, nil)
	require.NoError(t, err, "Failed to run migrations")

	return testDB
}

// SetupEmptyDB creates an in-memory SQLite database WITHOUT the entity store tables.
// Used for testing error handling when schema is missing.
func SetupEmptyDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB, err := sql.Open(db.DriverName, ":memory:")
	require.NoError(t, err)
	testDB.SetMaxOpenConns(1)
	t.Cleanup(func() { testDB.Close() })
	return testDB
}
