package yard

import (
	"context"

	"github.com/cayleygraph/quad"

	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/logger"
	"github.com/teranos/entityhub/model"
	"github.com/teranos/entityhub/query"
)

func (y *Yard) checkOpen() error {
	if y.closed.Load() {
		return errors.NewClosedError(y.cfg.ID)
	}
	return nil
}

func checkID(id string) error {
	if id == "" {
		return errors.NewInvalidArgumentError("entity id must not be empty")
	}
	return nil
}

// readWithMode serves a read according to the access mode. Tolerated mode
// falls back only on storage failures; other errors propagate.
func readWithMode[T any](y *Yard, op string, primary func() (T, error), fallback func(Reader) (T, error)) (T, error) {
	var zero T
	switch y.cfg.AccessMode {
	case Offline:
		if y.fallback == nil {
			return zero, errors.Mark(errors.Newf("yard %s is offline and has no fallback", y.cfg.ID), errors.ErrStorage)
		}
		return fallback(y.fallback)
	case Tolerated:
		v, err := primary()
		if err == nil || !errors.IsStorageError(err) || y.fallback == nil {
			return v, err
		}
		y.logger.Warnw("Primary read failed, using fallback",
			logger.FieldOperation, op,
			logger.FieldError, err)
		fv, ferr := fallback(y.fallback)
		if ferr != nil {
			return zero, errors.WithSecondaryError(ferr, err)
		}
		return fv, nil
	}
	return primary()
}

// GetRepresentation returns the stored Representation of id, or nil when
// id is not stored
func (y *Yard) GetRepresentation(ctx context.Context, id string) (*model.Representation, error) {
	if err := y.checkOpen(); err != nil {
		return nil, err
	}
	if err := checkID(id); err != nil {
		return nil, err
	}
	return readWithMode(y, "get",
		func() (*model.Representation, error) { return y.getRepresentation(ctx, id) },
		func(r Reader) (*model.Representation, error) { return r.GetRepresentation(ctx, id) })
}

func (y *Yard) getRepresentation(ctx context.Context, id string) (*model.Representation, error) {
	if r, ok := y.cache.get(id); ok {
		return r, nil
	}
	epoch := y.cache.begin()
	quads, err := y.store.Context(ctx, id)
	if err != nil {
		return nil, err
	}
	if !hasMarker(id, quads) {
		return nil, nil
	}
	r, err := y.factory.FromQuads(id, quads)
	if err != nil {
		return nil, err
	}
	y.cache.put(r, epoch)
	return r, nil
}

func hasMarker(id string, quads []quad.Quad) bool {
	for _, q := range quads {
		if q.Subject == quad.IRI(id) && q.Predicate == quad.IRI(model.MarkerPredicate) {
			return true
		}
	}
	return false
}

// IsRepresentation reports whether id is stored. It only probes the marker
// fact and never reads the entity's fields.
func (y *Yard) IsRepresentation(ctx context.Context, id string) (bool, error) {
	if err := y.checkOpen(); err != nil {
		return false, err
	}
	if err := checkID(id); err != nil {
		return false, err
	}
	return readWithMode(y, "exists",
		func() (bool, error) {
			if _, ok := y.cache.get(id); ok {
				return true, nil
			}
			return y.store.HasFact(ctx, id, model.MarkerPredicate)
		},
		func(r Reader) (bool, error) { return r.IsRepresentation(ctx, id) })
}

// Find returns the Representations matching q. With fields selected, only
// those fields are filled in.
func (y *Yard) Find(ctx context.Context, q *query.FieldQuery) (*ResultList[*model.Representation], error) {
	if err := y.checkOpen(); err != nil {
		return nil, err
	}
	compiled, err := y.compiler.CompileRepresentations(y.store.Name(), q)
	if err != nil {
		return nil, err
	}
	return readWithMode(y, "find",
		func() (*ResultList[*model.Representation], error) {
			subgraphs, err := y.store.Construct(ctx, compiled)
			if err != nil {
				return nil, err
			}
			items := make([]*model.Representation, 0, len(subgraphs))
			for _, sg := range subgraphs {
				r, err := y.factory.FromQuads(sg.Root, sg.Quads)
				if err != nil {
					return nil, err
				}
				items = append(items, r)
			}
			return newResults(q, compiled, items), nil
		},
		func(r Reader) (*ResultList[*model.Representation], error) { return r.Find(ctx, q) })
}

// FindReferences returns the ids of the entities matching q. Selected
// fields are ignored.
func (y *Yard) FindReferences(ctx context.Context, q *query.FieldQuery) (*ResultList[string], error) {
	if err := y.checkOpen(); err != nil {
		return nil, err
	}
	compiled, err := y.compiler.CompileReferences(y.store.Name(), q)
	if err != nil {
		return nil, err
	}
	return readWithMode(y, "find_references",
		func() (*ResultList[string], error) {
			ids, err := y.store.Select(ctx, compiled)
			if err != nil {
				return nil, err
			}
			return newResults(q, compiled, ids), nil
		},
		func(r Reader) (*ResultList[string], error) { return r.FindReferences(ctx, q) })
}

// FindRepresentation resolves the ids matching q and fetches each entity in
// full, ignoring selected fields. Entities removed in between are skipped.
func (y *Yard) FindRepresentation(ctx context.Context, q *query.FieldQuery) (*ResultList[*model.Representation], error) {
	refs, err := y.FindReferences(ctx, q)
	if err != nil {
		return nil, err
	}
	items := make([]*model.Representation, 0, refs.Len())
	for _, id := range refs.Items {
		r, err := y.GetRepresentation(ctx, id)
		if err != nil {
			return nil, err
		}
		if r != nil {
			items = append(items, r)
		}
	}
	return &ResultList[*model.Representation]{Query: refs.Query, Items: items, Limit: refs.Limit, Offset: refs.Offset}, nil
}

func newResults[T any](q *query.FieldQuery, c *query.Compiled, items []T) *ResultList[T] {
	return &ResultList[T]{Query: q.Clone(), Items: items, Limit: c.Limit, Offset: c.Offset}
}
