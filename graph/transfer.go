package graph

import (
	"context"
	"io"
	"time"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"

	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/logger"
)

// importBatchSize is how many facts one import transaction holds
const importBatchSize = 500

// Export writes every fact of the graph as N-Quads labelled with the graph
// name and returns the number written
func (g *SQLGraph) Export(ctx context.Context, w io.Writer) (int, error) {
	rows, err := g.db.QueryContext(ctx, allTriplesQuery, g.name)
	if err != nil {
		return 0, storageError(err, "export graph %s", g.name)
	}
	defer rows.Close()

	nw := nquads.NewWriter(w)
	label := quad.IRI(g.name)
	n := 0
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.subject, &r.predicate, &r.object, &r.kind, &r.datatype, &r.lang); err != nil {
			return n, storageError(err, "export graph %s", g.name)
		}
		q := r.quad()
		q.Label = label
		if err := nw.WriteQuad(q); err != nil {
			return n, errors.Wrapf(err, "write fact %d", n)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, storageError(err, "export graph %s", g.name)
	}
	if err := nw.Close(); err != nil {
		return n, errors.Wrap(err, "flush export")
	}

	g.logger.Infow("Exported graph", logger.FieldGraph, g.name, logger.FieldCount, n)
	return n, nil
}

// Import reads N-Quads and adds their facts to the graph. Labels are
// ignored; facts already present are skipped. Facts are committed in
// batches, so a failure leaves the batches before it in place.
func (g *SQLGraph) Import(ctx context.Context, r io.Reader) (int, error) {
	if err := g.checkWritable("import"); err != nil {
		return 0, err
	}
	start := time.Now()
	qr := nquads.NewReader(r, false)

	total := 0
	batch := make([]row, 0, importBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		tx, err := g.db.BeginTx(ctx, nil)
		if err != nil {
			return storageError(err, "begin import batch")
		}
		defer tx.Rollback()
		if err := g.insert(ctx, tx, batch); err != nil {
			return storageError(err, "import batch")
		}
		if err := tx.Commit(); err != nil {
			return storageError(err, "commit import batch")
		}
		total += len(batch)
		g.logger.Debugw("Imported batch", logger.FieldBatchSize, len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		q, err := qr.ReadQuad()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, errors.Wrapf(err, "read fact %d", total+len(batch)+1)
		}
		enc, err := encodeQuad(q)
		if err != nil {
			return total, err
		}
		batch = append(batch, enc)
		if len(batch) == importBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	g.logger.Infow("Imported graph",
		logger.FieldGraph, g.name,
		logger.FieldCount, total,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return total, nil
}
