package yard

import (
	"context"
	"time"

	"github.com/cayleygraph/quad"
	"github.com/google/uuid"

	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/logger"
	"github.com/teranos/entityhub/model"
)

// Store writes r, replacing whatever was stored under its id. The returned
// Representation is what a later GetRepresentation yields.
func (y *Yard) Store(ctx context.Context, r *model.Representation) (*model.Representation, error) {
	return y.write(ctx, "store", r, false)
}

// Update writes r like Store but fails with ErrNotFound when r's id is not
// stored yet
func (y *Yard) Update(ctx context.Context, r *model.Representation) (*model.Representation, error) {
	return y.write(ctx, "update", r, true)
}

func (y *Yard) write(ctx context.Context, op string, r *model.Representation, mustExist bool) (*model.Representation, error) {
	if err := y.checkOpen(); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.NewInvalidArgumentError("representation must not be nil")
	}
	id := r.ID()
	if err := checkID(id); err != nil {
		return nil, err
	}
	quads := append(r.Quads(), model.MarkerQuad(id))

	start := time.Now()
	y.mu.Lock()
	defer y.mu.Unlock()

	if mustExist {
		exists, err := y.store.HasFact(ctx, id, model.MarkerPredicate)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.NewNotFoundError("entity %s is not stored in yard %s", id, y.cfg.ID)
		}
	}
	defer y.cache.remove(id)
	if err := y.store.ReplaceContext(ctx, id, quads); err != nil {
		return nil, err
	}

	y.logger.Debugw("Stored representation",
		logger.FieldOperation, op,
		logger.FieldEntityID, id,
		logger.FieldCount, len(quads),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return y.factory.FromQuads(id, quads)
}

// StoreAll stores each representation in order. It stops at the first
// failure; the representations before it stay stored and are returned.
func (y *Yard) StoreAll(ctx context.Context, reps []*model.Representation) ([]*model.Representation, error) {
	return y.writeAll(ctx, "store", reps, y.Store)
}

// UpdateAll updates each representation in order, stopping at the first
// failure like StoreAll
func (y *Yard) UpdateAll(ctx context.Context, reps []*model.Representation) ([]*model.Representation, error) {
	return y.writeAll(ctx, "update", reps, y.Update)
}

func (y *Yard) writeAll(ctx context.Context, op string, reps []*model.Representation,
	write func(context.Context, *model.Representation) (*model.Representation, error)) ([]*model.Representation, error) {
	out := make([]*model.Representation, 0, len(reps))
	for i, r := range reps {
		stored, err := write(ctx, r)
		if err != nil {
			return out, errors.Wrapf(err, "%s item %d of %d", op, i+1, len(reps))
		}
		out = append(out, stored)
	}
	y.logger.Debugw("Batch applied", logger.FieldOperation, op, logger.FieldBatchSize, len(reps))
	return out, nil
}

// Create stores an empty Representation. An empty id is replaced by a
// generated one; an id already stored is rejected.
func (y *Yard) Create(ctx context.Context, id string) (*model.Representation, error) {
	if err := y.checkOpen(); err != nil {
		return nil, err
	}
	if id == "" {
		id = "urn:entityhub:" + y.cfg.ID + ":" + uuid.NewString()
	}
	r, err := y.factory.CreateRepresentation(id)
	if err != nil {
		return nil, err
	}

	y.mu.Lock()
	defer y.mu.Unlock()

	exists, err := y.store.HasFact(ctx, id, model.MarkerPredicate)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewInvalidArgumentError("entity %s already exists in yard %s", id, y.cfg.ID)
	}
	if err := y.store.ReplaceContext(ctx, id, []quad.Quad{model.MarkerQuad(id)}); err != nil {
		return nil, err
	}
	y.logger.Debugw("Created representation", logger.FieldEntityID, id)
	return r, nil
}

// Remove deletes the entity id. Removing an id that is not stored is a no-op.
func (y *Yard) Remove(ctx context.Context, id string) error {
	if err := y.checkOpen(); err != nil {
		return err
	}
	if err := checkID(id); err != nil {
		return err
	}

	y.mu.Lock()
	defer y.mu.Unlock()

	defer y.cache.remove(id)
	removed, err := y.store.DeleteContext(ctx, id)
	if err != nil {
		return err
	}
	y.logger.Debugw("Removed representation", logger.FieldEntityID, id, "removed", removed)
	return nil
}

// RemoveAll removes each id in order. It stops at the first failure; the
// ids before it stay removed.
func (y *Yard) RemoveAll(ctx context.Context, ids []string) error {
	for i, id := range ids {
		if err := y.Remove(ctx, id); err != nil {
			return errors.Wrapf(err, "remove item %d of %d", i+1, len(ids))
		}
	}
	return nil
}

// Clear removes every entity of the yard
func (y *Yard) Clear(ctx context.Context) error {
	if err := y.checkOpen(); err != nil {
		return err
	}

	y.mu.Lock()
	defer y.mu.Unlock()

	defer y.cache.clear()
	if err := y.store.Clear(ctx); err != nil {
		return err
	}
	y.logger.Infow("Cleared yard")
	return nil
}
