package graph

import (
	"context"

	"github.com/teranos/entityhub/model"
)

const statsQuery = `
	SELECT
		COUNT(*),
		COUNT(DISTINCT subject),
		COALESCE(SUM(CASE WHEN predicate = ? THEN 1 ELSE 0 END), 0),
		COUNT(DISTINCT predicate)
	FROM triples WHERE graph = ?`

// Stats summarizes the contents of a graph
type Stats struct {
	Graph    string `json:"graph" yaml:"graph"`
	YardID   string `json:"yard_id" yaml:"yard_id"`
	ReadOnly bool   `json:"read_only" yaml:"read_only"`
	Triples  int    `json:"triples" yaml:"triples"`
	Subjects int    `json:"subjects" yaml:"subjects"`
	Entities int    `json:"entities" yaml:"entities"`
	Fields   int    `json:"fields" yaml:"fields"`
}

// Stats counts the facts, subjects and managed entities of the graph
func (g *SQLGraph) Stats(ctx context.Context) (Stats, error) {
	s := Stats{Graph: g.name, YardID: g.yardID, ReadOnly: g.readOnly}
	err := g.db.QueryRowContext(ctx, statsQuery, model.MarkerPredicate, g.name).
		Scan(&s.Triples, &s.Subjects, &s.Entities, &s.Fields)
	if err != nil {
		return Stats{}, storageError(err, "stats of graph %s", g.name)
	}
	return s, nil
}
