package commands

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/teranos/entityhub/am"
	"github.com/teranos/entityhub/db"
	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/graph"
	"github.com/teranos/entityhub/logger"
	"github.com/teranos/entityhub/yard"
)

// openDatabase opens and migrates the database configured in database.path
func openDatabase(cfg *am.Config, log *zap.SugaredLogger) (*sql.DB, error) {
	dbPath := cfg.GetDatabasePath()
	database, err := db.OpenWithMigrations(dbPath, log)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}

// session is an open yard with the graph and database behind it
type session struct {
	db       *sql.DB
	graph    *graph.SQLGraph
	yard     *yard.Yard
	fallback *yard.Yard
}

func (s *session) Close() error {
	s.yard.Close()
	if s.fallback != nil {
		s.fallback.Close()
	}
	return s.db.Close()
}

// openYard loads the configuration and opens the configured yard. A
// fallback yard named by yard.fallback_id is opened read-only in the same
// database.
func openYard(ctx context.Context) (*session, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if databasePath != "" {
		cfg.Database.Path = databasePath
	}
	if yardID != "" {
		cfg.Yard.ID = yardID
		cfg.Yard.GraphName = ""
	}

	ycfg, err := yard.FromAm(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx, logger.ComponentLogger("cli"))

	database, err := openDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	g, err := graph.Open(ctx, database, ycfg.Graph(), ycfg.ID, ycfg.ReadOnly, log)
	if err != nil {
		database.Close()
		return nil, err
	}

	var (
		opts     []yard.Option
		fallback *yard.Yard
	)
	if fcfg, ok := yard.FallbackConfig(cfg); ok {
		fallback, err = yard.Open(ctx, database, fcfg, log)
		if err != nil {
			database.Close()
			return nil, errors.Wrapf(err, "failed to open fallback yard %s", fcfg.ID)
		}
		opts = append(opts, yard.WithFallback(fallback))
	}

	y, err := yard.New(g, ycfg, log, opts...)
	if err != nil {
		database.Close()
		return nil, err
	}
	logger.Debugw("Opened yard",
		logger.FieldYard, y.ID(),
		logger.FieldGraph, y.GraphName(),
		logger.FieldPath, cfg.GetDatabasePath(),
		logger.FieldMode, ycfg.AccessMode.String())
	return &session{db: database, graph: g, yard: y, fallback: fallback}, nil
}
