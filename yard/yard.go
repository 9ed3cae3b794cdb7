// Package yard is the storage façade of entityhub: it stores, removes and
// finds Representations in one named graph.
//
// Writes to one yard are serialized: each replaces or deletes the node
// context of a single entity in one transaction. Batch operations apply
// their items one by one and stop at the first failure, leaving earlier
// items applied. Queries run without the write lock.
package yard

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	"github.com/cayleygraph/quad"
	"go.uber.org/zap"

	"github.com/teranos/entityhub/convert"
	"github.com/teranos/entityhub/graph"
	"github.com/teranos/entityhub/logger"
	"github.com/teranos/entityhub/model"
	"github.com/teranos/entityhub/query"
)

// Store is the graph a yard keeps its entities in
type Store interface {
	Name() string
	ReplaceContext(ctx context.Context, id string, quads []quad.Quad) error
	DeleteContext(ctx context.Context, id string) (bool, error)
	Context(ctx context.Context, id string) ([]quad.Quad, error)
	HasFact(ctx context.Context, subject, predicate string) (bool, error)
	Select(ctx context.Context, c *query.Compiled) ([]string, error)
	Construct(ctx context.Context, c *query.Compiled) ([]graph.Subgraph, error)
	Clear(ctx context.Context) error
}

// Reader is the read surface of a yard, consulted as fallback in the
// tolerated and offline access modes
type Reader interface {
	GetRepresentation(ctx context.Context, id string) (*model.Representation, error)
	IsRepresentation(ctx context.Context, id string) (bool, error)
	Find(ctx context.Context, q *query.FieldQuery) (*ResultList[*model.Representation], error)
	FindReferences(ctx context.Context, q *query.FieldQuery) (*ResultList[string], error)
}

var _ Reader = (*Yard)(nil)

// Option configures a Yard
type Option func(*Yard)

// WithFallback sets the reader used by the tolerated and offline modes
func WithFallback(r Reader) Option {
	return func(y *Yard) { y.fallback = r }
}

// WithRegistry replaces the converter registry of created Representations
func WithRegistry(r *convert.Registry) Option {
	return func(y *Yard) { y.registry = r }
}

// Yard stores the Representations of one collection
type Yard struct {
	cfg      Config
	store    Store
	registry *convert.Registry
	factory  *model.Factory
	compiler *query.Compiler
	fallback Reader
	cache    *repCache
	logger   *zap.SugaredLogger

	// mu serializes writes
	mu     sync.Mutex
	closed atomic.Bool
}

// New creates a yard over store
func New(store Store, cfg Config, log *zap.SugaredLogger, opts ...Option) (*Yard, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	y := &Yard{
		cfg:    cfg,
		store:  store,
		cache:  newRepCache(cfg.CacheSize),
		logger: logger.OrNop(log).Named("yard").With(logger.FieldYard, cfg.ID),
	}
	for _, opt := range opts {
		opt(y)
	}
	if y.registry == nil {
		var ropts []convert.Option
		if cfg.DurationNullAsZero {
			ropts = append(ropts, convert.WithDurationNullAsZero())
		}
		y.registry = convert.NewDefaultRegistry(ropts...)
	}
	y.factory = model.NewFactory(y.registry, y.logger)
	y.compiler = query.NewCompiler(y.registry, cfg.DefaultQueryResults, cfg.MaxQueryResults)

	y.logger.Debugw("Yard ready",
		logger.FieldGraph, store.Name(),
		logger.FieldMode, cfg.AccessMode.String(),
		"cache_size", cfg.CacheSize)
	return y, nil
}

// Open attaches a yard to its graph in db, registering the graph on first use
func Open(ctx context.Context, db *sql.DB, cfg Config, log *zap.SugaredLogger, opts ...Option) (*Yard, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g, err := graph.Open(ctx, db, cfg.Graph(), cfg.ID, cfg.ReadOnly, log)
	if err != nil {
		return nil, err
	}
	return New(g, cfg, log, opts...)
}

// ID returns the yard id
func (y *Yard) ID() string { return y.cfg.ID }

// Name returns the display name
func (y *Yard) Name() string { return y.cfg.Name }

// Description returns the yard description
func (y *Yard) Description() string { return y.cfg.Description }

// Config returns the configuration the yard was created with
func (y *Yard) Config() Config { return y.cfg }

// GraphName returns the name of the backing graph
func (y *Yard) GraphName() string { return y.store.Name() }

// Factory returns the factory creating Representations for this yard
func (y *Yard) Factory() *model.Factory { return y.factory }

// CreateRepresentation returns an empty, unstored Representation for id
func (y *Yard) CreateRepresentation(id string) (*model.Representation, error) {
	return y.factory.CreateRepresentation(id)
}

// Close deactivates the yard. Later operations fail with ErrClosed.
func (y *Yard) Close() error {
	if y.closed.CompareAndSwap(false, true) {
		y.cache.clear()
		y.logger.Debugw("Yard closed")
	}
	return nil
}

// Closed reports whether Close was called
func (y *Yard) Closed() bool { return y.closed.Load() }
