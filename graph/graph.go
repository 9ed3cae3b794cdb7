// Package graph stores the facts of named graphs in SQLite.
//
// Every entity owns a context: the facts whose subject is the entity, plus
// the facts of the blank nodes reachable from it. Contexts are replaced and
// deleted as a whole inside one transaction, so readers never observe a
// partially written entity.
package graph

import (
	"context"
	"database/sql"
	"time"

	"github.com/cayleygraph/quad"
	"go.uber.org/zap"

	"github.com/teranos/entityhub/db"
	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/logger"
	"github.com/teranos/entityhub/query"
)

const (
	graphLookupQuery = `SELECT yard_id, read_only FROM graphs WHERE name = ?`

	graphInsertQuery = `
		INSERT INTO graphs (name, yard_id, read_only, created_at)
		VALUES (?, ?, ?, ?)`

	// contextCTE walks from an entity through blank-node objects
	contextCTE = `
		WITH RECURSIVE ctx(node) AS (
			SELECT ?
			UNION
			SELECT t.object FROM triples t JOIN ctx ON t.subject = ctx.node
			WHERE t.graph = ? AND t.kind = 1
		)`

	contextDeleteQuery = contextCTE + `
		DELETE FROM triples WHERE graph = ? AND subject IN (SELECT node FROM ctx)`

	contextSelectQuery = contextCTE + `
		SELECT t.subject, t.predicate, t.object, t.kind, t.datatype, t.lang
		FROM triples t JOIN ctx ON t.subject = ctx.node
		WHERE t.graph = ?
		ORDER BY t.rowid`

	tripleInsertQuery = `
		INSERT OR IGNORE INTO triples (graph, subject, predicate, object, kind, datatype, lang)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	factExistsQuery = `
		SELECT EXISTS(SELECT 1 FROM triples WHERE graph = ? AND subject = ? AND predicate = ?)`

	clearQuery = `DELETE FROM triples WHERE graph = ?`

	allTriplesQuery = `
		SELECT subject, predicate, object, kind, datatype, lang
		FROM triples WHERE graph = ?
		ORDER BY rowid`
)

// Subgraph is the facts returned for one matched entity
type Subgraph struct {
	Root  string
	Quads []quad.Quad
}

// SQLGraph is one named graph in the triples table
type SQLGraph struct {
	db       *sql.DB
	name     string
	yardID   string
	readOnly bool
	logger   *zap.SugaredLogger
}

// Open attaches to the named graph, registering it for yardID on first use.
// A graph registered by another yard is reattached with a warning.
func Open(ctx context.Context, conn *sql.DB, name, yardID string, readOnly bool, log *zap.SugaredLogger) (*SQLGraph, error) {
	if name == "" {
		return nil, errors.NewInvalidArgumentError("graph name is empty")
	}
	g := &SQLGraph{
		db:       conn,
		name:     name,
		yardID:   yardID,
		readOnly: readOnly,
		logger:   logger.OrNop(log).Named("graph"),
	}

	var owner string
	var ro bool
	err := conn.QueryRowContext(ctx, graphLookupQuery, name).Scan(&owner, &ro)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err := conn.ExecContext(ctx, graphInsertQuery, name, yardID, readOnly, time.Now().UTC())
		switch {
		case db.IsConstraintViolation(err):
			// registered concurrently by another process
			g.logger.Debugw("Graph already registered", logger.FieldGraph, name)
		case err != nil:
			return nil, storageError(err, "register graph %s", name)
		default:
			g.logger.Debugw("Registered graph", logger.FieldGraph, name, logger.FieldYard, yardID)
		}
	case err != nil:
		return nil, storageError(err, "look up graph %s", name)
	case owner != yardID:
		g.logger.Warnw("Graph registered by another yard",
			logger.FieldGraph, name,
			logger.FieldYard, yardID,
			"registered_by", owner)
	}
	return g, nil
}

// Name returns the graph name
func (g *SQLGraph) Name() string { return g.name }

// ReadOnly reports whether writes are rejected
func (g *SQLGraph) ReadOnly() bool { return g.readOnly }

func (g *SQLGraph) checkWritable(op string) error {
	if g.readOnly {
		return errors.Mark(errors.Wrapf(errors.ErrReadOnly, "%s on graph %s", op, g.name), errors.ErrStorage)
	}
	return nil
}

// ReplaceContext atomically replaces the context of id with quads. Quads
// whose subject is neither id nor a blank node are rejected.
func (g *SQLGraph) ReplaceContext(ctx context.Context, id string, quads []quad.Quad) error {
	if err := g.checkWritable("replace"); err != nil {
		return err
	}
	if id == "" {
		return errors.NewInvalidArgumentError("entity id is empty")
	}

	rows := make([]row, 0, len(quads))
	for _, q := range quads {
		r, err := encodeQuad(q)
		if err != nil {
			return errors.Wrapf(err, "entity %s", id)
		}
		if r.subject != id && !isBlank(r.subject) {
			return errors.NewInvalidArgumentError("fact subject %s does not belong to entity %s", r.subject, id)
		}
		rows = append(rows, r)
	}

	start := time.Now()
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError(err, "begin replace of %s", id)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, contextDeleteQuery, id, g.name, g.name); err != nil {
		return storageError(err, "delete context of %s", id)
	}
	if err := g.insert(ctx, tx, rows); err != nil {
		return storageError(err, "insert context of %s", id)
	}
	if err := tx.Commit(); err != nil {
		return storageError(err, "commit replace of %s", id)
	}

	g.logger.Debugw("Replaced context",
		logger.FieldEntityID, id,
		logger.FieldCount, len(rows),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return nil
}

func (g *SQLGraph) insert(ctx context.Context, tx *sql.Tx, rows []row) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, tripleInsertQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, g.name, r.subject, r.predicate, r.object, r.kind, r.datatype, r.lang); err != nil {
			return errors.Wrapf(err, "fact %s %s", r.subject, r.predicate)
		}
	}
	return nil
}

// DeleteContext removes the context of id. It reports whether any fact was
// removed.
func (g *SQLGraph) DeleteContext(ctx context.Context, id string) (bool, error) {
	if err := g.checkWritable("delete"); err != nil {
		return false, err
	}
	res, err := g.db.ExecContext(ctx, contextDeleteQuery, id, g.name, g.name)
	if err != nil {
		return false, storageError(err, "delete context of %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError(err, "delete context of %s", id)
	}
	g.logger.Debugw("Deleted context", logger.FieldEntityID, id, logger.FieldCount, n)
	return n > 0, nil
}

// Context returns the facts of id and the blank nodes it reaches
func (g *SQLGraph) Context(ctx context.Context, id string) ([]quad.Quad, error) {
	rows, err := g.db.QueryContext(ctx, contextSelectQuery, id, g.name, g.name)
	if err != nil {
		return nil, storageError(err, "read context of %s", id)
	}
	defer rows.Close()

	quads, err := scanQuads(rows)
	if err != nil {
		return nil, storageError(err, "read context of %s", id)
	}
	return quads, nil
}

// HasFact reports whether subject carries predicate
func (g *SQLGraph) HasFact(ctx context.Context, subject, predicate string) (bool, error) {
	var exists bool
	if err := g.db.QueryRowContext(ctx, factExistsQuery, g.name, subject, predicate).Scan(&exists); err != nil {
		return false, storageError(err, "check %s %s", subject, predicate)
	}
	return exists, nil
}

// Select runs a compiled reference query and returns the matched ids
func (g *SQLGraph) Select(ctx context.Context, c *query.Compiled) ([]string, error) {
	if c.Target != query.TargetReferences {
		return nil, errors.NewInvalidQueryError("select needs a %s query, got %s", query.TargetReferences, c.Target)
	}
	start := time.Now()
	rows, err := g.db.QueryContext(ctx, c.Text, c.Args...)
	if err != nil {
		return nil, storageError(err, "select on graph %s", g.name)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageError(err, "scan id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "select on graph %s", g.name)
	}

	g.logger.Debugw("Selected references",
		logger.FieldTarget, c.Target.String(),
		logger.FieldQuery, c.Text,
		logger.FieldCount, len(ids),
		logger.FieldLimit, c.Limit,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return ids, nil
}

// Construct runs a compiled representation query and groups the returned
// facts by matched entity, in order of first appearance
func (g *SQLGraph) Construct(ctx context.Context, c *query.Compiled) ([]Subgraph, error) {
	if c.Target != query.TargetRepresentations {
		return nil, errors.NewInvalidQueryError("construct needs a %s query, got %s", query.TargetRepresentations, c.Target)
	}
	start := time.Now()
	rows, err := g.db.QueryContext(ctx, c.Text, c.Args...)
	if err != nil {
		return nil, storageError(err, "construct on graph %s", g.name)
	}
	defer rows.Close()

	var out []Subgraph
	index := make(map[string]int)
	for rows.Next() {
		var root string
		var r row
		if err := rows.Scan(&root, &r.subject, &r.predicate, &r.object, &r.kind, &r.datatype, &r.lang); err != nil {
			return nil, storageError(err, "scan fact")
		}
		i, ok := index[root]
		if !ok {
			i = len(out)
			index[root] = i
			out = append(out, Subgraph{Root: root})
		}
		out[i].Quads = append(out[i].Quads, r.quad())
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err, "construct on graph %s", g.name)
	}

	g.logger.Debugw("Constructed representations",
		logger.FieldTarget, c.Target.String(),
		logger.FieldQuery, c.Text,
		logger.FieldCount, len(out),
		logger.FieldLimit, c.Limit,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return out, nil
}

// Clear removes every fact of the graph. The graph stays registered.
func (g *SQLGraph) Clear(ctx context.Context) error {
	if err := g.checkWritable("clear"); err != nil {
		return err
	}
	res, err := g.db.ExecContext(ctx, clearQuery, g.name)
	if err != nil {
		return storageError(err, "clear graph %s", g.name)
	}
	n, _ := res.RowsAffected()
	g.logger.Infow("Cleared graph", logger.FieldGraph, g.name, logger.FieldCount, n)
	return nil
}

// storageError wraps a driver failure as ErrStorage, with a hint for the
// failures a caller can act on
func storageError(err error, format string, args ...interface{}) error {
	wrapped := errors.WrapStorage(err, format, args...)
	switch {
	case db.IsBusy(err):
		return errors.WithHint(wrapped, "the database is locked by another writer; retry the operation")
	case db.IsDatabaseClosed(err):
		return errors.WithHint(wrapped, "the database was closed while the operation ran")
	}
	return wrapped
}

func scanQuads(rows *sql.Rows) ([]quad.Quad, error) {
	var quads []quad.Quad
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.subject, &r.predicate, &r.object, &r.kind, &r.datatype, &r.lang); err != nil {
			return nil, err
		}
		quads = append(quads, r.quad())
	}
	return quads, rows.Err()
}
