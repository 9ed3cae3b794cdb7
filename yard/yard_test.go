package yard_test

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/entityhub/db/testutil"
	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/graph/graphtest"
	"github.com/teranos/entityhub/model"
	"github.com/teranos/entityhub/query"
	"github.com/teranos/entityhub/value"
	"github.com/teranos/entityhub/yard"
)

var ctx = context.Background()

func testConfig(id string) yard.Config {
	return yard.Config{
		ID:                  id,
		Name:                "Test Yard",
		DefaultQueryResults: 10,
		MaxQueryResults:     100,
		CacheSize:           16,
	}
}

func newTestYard(t *testing.T, opts ...yard.Option) (*yard.Yard, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	y, err := yard.Open(ctx, db, testConfig("test"), zaptest.NewLogger(t).Sugar(), opts...)
	require.NoError(t, err)
	return y, db
}

func newRep(t *testing.T, y *yard.Yard, id string, fields map[string]any) *model.Representation {
	t.Helper()
	r, err := y.CreateRepresentation(id)
	require.NoError(t, err)
	for f, v := range fields {
		require.NoError(t, r.Add(f, v))
	}
	return r
}

func TestCreateAndFetch(t *testing.T) {
	y, _ := newTestYard(t)

	r := newRep(t, y, "urn:e1", map[string]any{"urn:name": value.NewText("Ada", "en")})
	_, err := y.Store(ctx, r)
	require.NoError(t, err)

	got, err := y.GetRepresentation(ctx, "urn:e1")
	require.NoError(t, err)
	require.NotNil(t, got)

	texts := slices.Collect(model.Get[value.Text](got, "urn:name"))
	assert.Equal(t, []value.Text{{Text: "Ada", Lang: "en"}}, texts)
}

func TestRoundTrip(t *testing.T) {
	y, _ := newTestYard(t)
	born := time.Date(1815, 12, 10, 8, 30, 0, 0, time.UTC)

	r := newRep(t, y, "urn:ada", map[string]any{
		"urn:name":    []any{value.NewText("Ada Lovelace", "en"), value.NewText("Ada Lovelace", "fr")},
		"urn:age":     36,
		"urn:height":  1.65,
		"urn:married": true,
		"urn:born":    born,
		"urn:nick":    "Enchantress of Numbers",
	})
	require.NoError(t, r.AddReference("urn:knows", "urn:charles"))
	addr := r.NewBlankNode()
	require.NoError(t, r.Add("urn:address", addr))
	require.NoError(t, r.AddNodeFact(addr, "urn:city", "London"))

	stored, err := y.Store(ctx, r)
	require.NoError(t, err)
	assert.True(t, r.SameFields(stored))

	got, err := y.GetRepresentation(ctx, "urn:ada")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, r.SameFields(got), "fields: %v", got.SortedFieldNames())

	gotBorn, ok := model.First[time.Time](got, "urn:born")
	require.True(t, ok)
	assert.True(t, born.Equal(gotBorn))

	age, ok := model.First[int](got, "urn:age")
	require.True(t, ok)
	assert.Equal(t, 36, age)

	ref, ok := got.FirstReference("urn:knows")
	require.True(t, ok)
	assert.Equal(t, value.Reference("urn:charles"), ref)

	node, ok := got.First("urn:address")
	require.True(t, ok)
	require.True(t, value.IsBlank(node))
	var cities []string
	for predicate, v := range got.NodeFacts(node.(value.Resource)) {
		assert.Equal(t, "urn:city", predicate)
		cities = append(cities, v.Lexical())
	}
	assert.Equal(t, []string{"London"}, cities)
}

func TestStoreReplacesRatherThanMerges(t *testing.T) {
	y, _ := newTestYard(t)

	_, err := y.Store(ctx, newRep(t, y, "urn:e1", map[string]any{"urn:a": "one"}))
	require.NoError(t, err)
	_, err = y.Store(ctx, newRep(t, y, "urn:e1", map[string]any{"urn:b": "two"}))
	require.NoError(t, err)

	got, err := y.GetRepresentation(ctx, "urn:e1")
	require.NoError(t, err)
	assert.Equal(t, []string{"urn:b"}, got.SortedFieldNames())
}

func TestEmptyRepresentationRoundTrips(t *testing.T) {
	y, _ := newTestYard(t)

	_, err := y.Store(ctx, newRep(t, y, "urn:empty", nil))
	require.NoError(t, err)

	got, err := y.GetRepresentation(ctx, "urn:empty")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsEmpty())
}

func TestRemove(t *testing.T) {
	y, _ := newTestYard(t)
	_, err := y.Store(ctx, newRep(t, y, "urn:e1", map[string]any{"urn:a": "one"}))
	require.NoError(t, err)

	for _, id := range []string{"urn:e1", "urn:e1", "urn:never-stored"} {
		require.NoError(t, y.Remove(ctx, id))

		exists, err := y.IsRepresentation(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists)

		got, err := y.GetRepresentation(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestOrphanNodeFactsAreNotStored(t *testing.T) {
	t.Run("node never referenced", func(t *testing.T) {
		y, db := newTestYard(t)
		r := newRep(t, y, "urn:e1", map[string]any{"urn:name": "x"})
		require.NoError(t, r.AddNodeFact(r.NewBlankNode(), "urn:street", "Main St"))

		_, err := y.Store(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, 2, graphtest.CountTriples(t, db, y.GraphName()))

		require.NoError(t, y.Remove(ctx, "urn:e1"))
		assert.Equal(t, 0, graphtest.CountTriples(t, db, y.GraphName()))
	})

	t.Run("reference removed before store", func(t *testing.T) {
		y, db := newTestYard(t)
		r := newRep(t, y, "urn:e1", nil)
		node := r.NewBlankNode()
		require.NoError(t, r.Add("urn:addr", node))
		require.NoError(t, r.AddNodeFact(node, "urn:street", "Main St"))
		_, err := y.Store(ctx, r)
		require.NoError(t, err)

		require.NoError(t, r.RemoveAll("urn:addr"))
		_, err = y.Store(ctx, r)
		require.NoError(t, err)
		assert.Equal(t, 1, graphtest.CountTriples(t, db, y.GraphName()))

		require.NoError(t, y.Remove(ctx, "urn:e1"))
		assert.Equal(t, 0, graphtest.CountTriples(t, db, y.GraphName()))
	})
}

func TestExistenceProbeConsistency(t *testing.T) {
	y, _ := newTestYard(t)
	ids := []string{"urn:e1", "urn:e2", "urn:e3"}
	for _, id := range ids {
		_, err := y.Store(ctx, newRep(t, y, id, map[string]any{"urn:a": id}))
		require.NoError(t, err)
	}
	require.NoError(t, y.Remove(ctx, "urn:e2"))

	for _, id := range append(ids, "urn:unknown") {
		exists, err := y.IsRepresentation(ctx, id)
		require.NoError(t, err)
		got, err := y.GetRepresentation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, exists, got != nil, id)
	}
}

func TestUpdate(t *testing.T) {
	y, _ := newTestYard(t)

	_, err := y.Update(ctx, newRep(t, y, "urn:e1", map[string]any{"urn:a": "one"}))
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))

	exists, err := y.IsRepresentation(ctx, "urn:e1")
	require.NoError(t, err)
	assert.False(t, exists, "failed update must not create the entity")

	_, err = y.Store(ctx, newRep(t, y, "urn:e1", map[string]any{"urn:a": "one"}))
	require.NoError(t, err)
	updated, err := y.Update(ctx, newRep(t, y, "urn:e1", map[string]any{"urn:a": "two"}))
	require.NoError(t, err)

	s, ok := model.First[string](updated, "urn:a")
	require.True(t, ok)
	assert.Equal(t, "two", s)
}

func TestCreate(t *testing.T) {
	y, _ := newTestYard(t)

	t.Run("generated id", func(t *testing.T) {
		r, err := y.Create(ctx, "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(r.ID(), "urn:entityhub:test:"))

		got, err := y.GetRepresentation(ctx, r.ID())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.IsEmpty())
	})

	t.Run("explicit id", func(t *testing.T) {
		r, err := y.Create(ctx, "urn:created")
		require.NoError(t, err)
		assert.Equal(t, "urn:created", r.ID())
	})

	t.Run("existing id", func(t *testing.T) {
		_, err := y.Create(ctx, "urn:created")
		assert.True(t, errors.IsInvalidArgument(err))
	})
}

func TestQueries(t *testing.T) {
	y, _ := newTestYard(t)
	for i := range 15 {
		r := newRep(t, y, fmt.Sprintf("urn:e%02d", i), map[string]any{
			"urn:n":    i,
			"urn:name": fmt.Sprintf("entity %d", i),
		})
		_, err := y.Store(ctx, r)
		require.NoError(t, err)
	}

	t.Run("default limit caps results", func(t *testing.T) {
		found, err := y.Find(ctx, query.New())
		require.NoError(t, err)
		assert.Equal(t, 10, found.Len())
		assert.Equal(t, 10, found.Limit)

		refs, err := y.FindReferences(ctx, query.New())
		require.NoError(t, err)
		assert.Equal(t, 10, refs.Len())
	})

	t.Run("explicit limit", func(t *testing.T) {
		refs, err := y.FindReferences(ctx, query.New().WithLimit(12))
		require.NoError(t, err)
		assert.Equal(t, 12, refs.Len())
	})

	t.Run("reference query ignores selected fields", func(t *testing.T) {
		q := query.New().Select("urn:name").Where("urn:n", query.Equals(3))
		refs, err := y.FindReferences(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, []string{"urn:e03"}, refs.Items)
		assert.Equal(t, []string{"urn:name"}, refs.Query.Selected())
	})

	t.Run("find projects selected fields", func(t *testing.T) {
		q := query.New().Select("urn:name").Where("urn:n", query.RangeConstraint{Lower: 12})
		found, err := y.Find(ctx, q)
		require.NoError(t, err)
		require.Equal(t, 2, found.Len())
		for r := range found.All() {
			assert.Equal(t, []string{"urn:name"}, r.SortedFieldNames())
		}
	})

	t.Run("find representation fetches every field", func(t *testing.T) {
		q := query.New().Select("urn:name").Where("urn:n", query.Equals(3))
		found, err := y.FindRepresentation(ctx, q)
		require.NoError(t, err)
		require.Equal(t, 1, found.Len())
		assert.Equal(t, []string{"urn:n", "urn:name"}, found.Items[0].SortedFieldNames())
	})

	t.Run("invalid query", func(t *testing.T) {
		_, err := y.Find(ctx, query.New().Where("", query.Exists()))
		assert.True(t, errors.IsInvalidQuery(err))
		_, err = y.FindReferences(ctx, query.New().Where("", query.Exists()))
		assert.True(t, errors.IsInvalidQuery(err))
	})

	t.Run("result query is a copy", func(t *testing.T) {
		q := query.New()
		refs, err := y.FindReferences(ctx, q)
		require.NoError(t, err)
		q.Select("urn:later")
		assert.Empty(t, refs.Query.Selected())
	})
}

func TestClear(t *testing.T) {
	y, _ := newTestYard(t)
	for _, id := range []string{"urn:e1", "urn:e2"} {
		_, err := y.Store(ctx, newRep(t, y, id, map[string]any{"urn:a": id}))
		require.NoError(t, err)
	}
	// Warm the cache
	_, err := y.GetRepresentation(ctx, "urn:e1")
	require.NoError(t, err)

	require.NoError(t, y.Clear(ctx))

	refs, err := y.FindReferences(ctx, query.New())
	require.NoError(t, err)
	assert.True(t, refs.IsEmpty())

	got, err := y.GetRepresentation(ctx, "urn:e1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache(t *testing.T) {
	y, _ := newTestYard(t)
	_, err := y.Store(ctx, newRep(t, y, "urn:e1", map[string]any{"urn:a": "one"}))
	require.NoError(t, err)

	first, err := y.GetRepresentation(ctx, "urn:e1")
	require.NoError(t, err)

	t.Run("returned copies are detached", func(t *testing.T) {
		require.NoError(t, first.Add("urn:b", "local only"))

		again, err := y.GetRepresentation(ctx, "urn:e1")
		require.NoError(t, err)
		assert.Equal(t, []string{"urn:a"}, again.SortedFieldNames())
	})

	t.Run("writes invalidate", func(t *testing.T) {
		_, err := y.Store(ctx, newRep(t, y, "urn:e1", map[string]any{"urn:c": "three"}))
		require.NoError(t, err)

		again, err := y.GetRepresentation(ctx, "urn:e1")
		require.NoError(t, err)
		assert.Equal(t, []string{"urn:c"}, again.SortedFieldNames())
	})
}

func TestClosed(t *testing.T) {
	y, _ := newTestYard(t)
	r := newRep(t, y, "urn:e1", nil)

	require.NoError(t, y.Close())
	require.NoError(t, y.Close())
	assert.True(t, y.Closed())

	_, err := y.GetRepresentation(ctx, "urn:e1")
	assert.True(t, errors.IsClosedError(err))
	_, err = y.IsRepresentation(ctx, "urn:e1")
	assert.True(t, errors.IsClosedError(err))
	_, err = y.Store(ctx, r)
	assert.True(t, errors.IsClosedError(err))
	_, err = y.Update(ctx, r)
	assert.True(t, errors.IsClosedError(err))
	_, err = y.Create(ctx, "")
	assert.True(t, errors.IsClosedError(err))
	assert.True(t, errors.IsClosedError(y.Remove(ctx, "urn:e1")))
	assert.True(t, errors.IsClosedError(y.Clear(ctx)))
	_, err = y.Find(ctx, query.New())
	assert.True(t, errors.IsClosedError(err))
	_, err = y.FindReferences(ctx, query.New())
	assert.True(t, errors.IsClosedError(err))
}

func TestInvalidArguments(t *testing.T) {
	y, _ := newTestYard(t)

	_, err := y.GetRepresentation(ctx, "")
	assert.True(t, errors.IsInvalidArgument(err))
	_, err = y.IsRepresentation(ctx, "")
	assert.True(t, errors.IsInvalidArgument(err))
	_, err = y.Store(ctx, nil)
	assert.True(t, errors.IsInvalidArgument(err))
	assert.True(t, errors.IsInvalidArgument(y.Remove(ctx, "")))
	_, err = y.CreateRepresentation("")
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestReadOnlyYard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testConfig("archive")
	cfg.ReadOnly = true
	y, err := yard.Open(ctx, db, cfg, nil)
	require.NoError(t, err)

	_, err = y.Store(ctx, newRep(t, y, "urn:e1", nil))
	require.Error(t, err)
	assert.True(t, errors.IsStorageError(err))
	assert.True(t, errors.Is(err, errors.ErrReadOnly))

	assert.True(t, errors.Is(y.Remove(ctx, "urn:e1"), errors.ErrReadOnly))
	assert.True(t, errors.Is(y.Clear(ctx), errors.ErrReadOnly))

	refs, err := y.FindReferences(ctx, query.New())
	require.NoError(t, err)
	assert.True(t, refs.IsEmpty())
}

func TestYardsShareDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	a, err := yard.Open(ctx, db, testConfig("a"), nil)
	require.NoError(t, err)
	b, err := yard.Open(ctx, db, testConfig("b"), nil)
	require.NoError(t, err)

	_, err = a.Store(ctx, newRep(t, a, "urn:e1", map[string]any{"urn:a": "in a"}))
	require.NoError(t, err)

	exists, err := b.IsRepresentation(ctx, "urn:e1")
	require.NoError(t, err)
	assert.False(t, exists)

	t.Run("reopen reattaches", func(t *testing.T) {
		reopened, err := yard.Open(ctx, db, testConfig("a"), nil)
		require.NoError(t, err)
		assert.Equal(t, "urn:entityhub:yard:a", reopened.GraphName())

		exists, err := reopened.IsRepresentation(ctx, "urn:e1")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}
