// Package graphtest opens graphs over an in-memory database for tests
package graphtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/entityhub/db/testutil"
	"github.com/teranos/entityhub/graph"
)

// DefaultGraph is the graph name NewGraph uses
const DefaultGraph = "urn:entityhub:yard:test"

// NewGraph opens a writable graph over a fresh migrated database
func NewGraph(t *testing.T) (*graph.SQLGraph, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	g, err := graph.Open(context.Background(), db, DefaultGraph, "test", false, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return g, db
}

// Fact builds a quad from an IRI subject and predicate
func Fact(subject, predicate string, object quad.Value) quad.Quad {
	return quad.Quad{Subject: quad.IRI(subject), Predicate: quad.IRI(predicate), Object: object}
}

// CountTriples returns the number of facts stored in the named graph
func CountTriples(t *testing.T, db *sql.DB, name string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM triples WHERE graph = ?`, name).Scan(&n))
	return n
}
