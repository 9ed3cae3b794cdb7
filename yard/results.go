package yard

import (
	"iter"
	"slices"

	"github.com/teranos/entityhub/query"
)

// ResultList is one page of query results
type ResultList[T any] struct {
	// Query is a copy of the executed query
	Query *query.FieldQuery
	Items []T
	// Limit is the effective limit the query ran with; 0 means unbounded
	Limit  int
	Offset int
}

// Len returns the number of items
func (l *ResultList[T]) Len() int { return len(l.Items) }

// IsEmpty reports whether the query matched nothing
func (l *ResultList[T]) IsEmpty() bool { return len(l.Items) == 0 }

// All iterates the items
func (l *ResultList[T]) All() iter.Seq[T] { return slices.Values(l.Items) }
