package query

import (
	"math/big"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayleygraph/quad"

	"github.com/teranos/entityhub/convert"
	"github.com/teranos/entityhub/datatype"
	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/model"
	"github.com/teranos/entityhub/value"
)

const testGraph = "urn:entityhub:yard:test"

func newTestCompiler() *Compiler {
	return NewCompiler(convert.NewDefaultRegistry(), 100, 1000)
}

// requireBalanced checks that every placeholder has exactly one arg
func requireBalanced(t *testing.T, c *Compiled) {
	t.Helper()
	require.Equal(t, strings.Count(c.Text, "?"), len(c.Args), "placeholders vs args in:\n%s", c.Text)
}

func TestResolveLimit(t *testing.T) {
	tests := []struct {
		name     string
		explicit int
		def      int
		max      int
		want     int
	}{
		{"explicit", 10, 100, 1000, 10},
		{"default", 0, 100, 1000, 100},
		{"negative uses default", -3, 100, 1000, 100},
		{"capped", 5000, 100, 1000, 1000},
		{"default capped", 0, 2000, 1000, 1000},
		{"unbounded without max", 0, 0, 0, 0},
		{"unbounded default capped", 0, 0, 50, 50},
		{"no max", 5000, 100, 0, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLimit(tt.explicit, tt.def, tt.max))
		})
	}
}

func TestCompileReferences(t *testing.T) {
	c := newTestCompiler()

	t.Run("does not project selected fields", func(t *testing.T) {
		q := New().Select("urn:name").Where("urn:age", Equals(36))

		compiled, err := c.CompileReferences(testGraph, q)
		require.NoError(t, err)
		requireBalanced(t, compiled)

		assert.Equal(t, TargetReferences, compiled.Target)
		assert.True(t, strings.HasPrefix(compiled.Text, "SELECT m.subject FROM triples m"))
		assert.NotContains(t, compiled.Text, "urn:name")
		assert.NotContains(t, compiled.Args, "urn:name")
		assert.Contains(t, compiled.Args, "urn:age")
		assert.Equal(t, []any{testGraph, model.MarkerPredicate}, compiled.Args[:2])
	})

	t.Run("default limit", func(t *testing.T) {
		compiled, err := c.CompileReferences(testGraph, New())
		require.NoError(t, err)
		requireBalanced(t, compiled)

		assert.Equal(t, 100, compiled.Limit)
		assert.Contains(t, compiled.Text, "LIMIT ? OFFSET ?")
		assert.Equal(t, []any{100, 0}, compiled.Args[len(compiled.Args)-2:])
	})

	t.Run("limit capped at max", func(t *testing.T) {
		compiled, err := c.CompileReferences(testGraph, New().WithLimit(5000).WithOffset(7))
		require.NoError(t, err)

		assert.Equal(t, 1000, compiled.Limit)
		assert.Equal(t, 7, compiled.Offset)
		assert.Equal(t, []any{1000, 7}, compiled.Args[len(compiled.Args)-2:])
	})

	t.Run("unbounded with offset", func(t *testing.T) {
		unbounded := NewCompiler(nil, 0, 0)
		compiled, err := unbounded.CompileReferences(testGraph, New().WithOffset(3))
		require.NoError(t, err)
		requireBalanced(t, compiled)

		assert.Equal(t, 0, compiled.Limit)
		assert.Contains(t, compiled.Text, "LIMIT -1 OFFSET ?")
	})

	t.Run("unbounded without offset", func(t *testing.T) {
		unbounded := NewCompiler(nil, 0, 0)
		compiled, err := unbounded.CompileReferences(testGraph, New())
		require.NoError(t, err)
		assert.NotContains(t, compiled.Text, "LIMIT")
	})

	t.Run("does not mutate the query", func(t *testing.T) {
		q := New().Where("urn:age", Equals(36))
		before := q.Clone()

		_, err := c.CompileReferences(testGraph, q)
		require.NoError(t, err)
		assert.Equal(t, before, q)
	})
}

func TestCompileConstraints(t *testing.T) {
	c := newTestCompiler()

	tests := []struct {
		name     string
		con      Constraint
		contains []string
		args     []any
	}{
		{
			name:     "exists",
			con:      Exists(),
			contains: []string{"EXISTS (SELECT 1 FROM triples c0"},
		},
		{
			name:     "absent",
			con:      Absent(),
			contains: []string{"NOT EXISTS"},
		},
		{
			name:     "native int",
			con:      Equals(36),
			contains: []string{"c0.datatype = ?"},
			args:     []any{datatype.Long.URI, "36"},
		},
		{
			name:     "native string matches text and xsd:string",
			con:      Equals("Ada"),
			contains: []string{"c0.datatype IN (?, ?)"},
			args:     []any{"", datatype.String.URI, "Ada"},
		},
		{
			name: "tagged text",
			con:  Equals(value.NewText("Ada", "EN")),
			args: []any{"Ada", "en"},
		},
		{
			name:     "reference value",
			con:      Equals(value.Reference("urn:ada")),
			contains: []string{"c0.kind = ?"},
			args:     []any{KindIRI, "urn:ada"},
		},
		{
			name: "explicit datatypes",
			con:  ValueConstraint{Values: []any{"5"}, DataTypes: []string{"Int", "xsd:long"}},
			args: []any{datatype.Int.URI, "5", datatype.Long.URI, "5"},
		},
		{
			name:     "datatype only",
			con:      ValueConstraint{DataTypes: []string{"DateTime", "Reference"}},
			contains: []string{"c0.kind = ?"},
			args:     []any{datatype.DateTime.URI},
		},
		{
			name:     "all values",
			con:      ValueConstraint{Values: []any{"a", "b"}, Mode: ModeAll},
			contains: []string{"c0_0.object = ?", "c0_1.object = ?", " AND EXISTS"},
		},
		{
			name:     "any reference",
			con:      References("urn:a", "urn:b"),
			contains: []string{" OR "},
			args:     []any{"urn:a", "urn:b"},
		},
		{
			name:     "all references",
			con:      ReferenceConstraint{References: []string{"urn:a", "urn:b"}, Mode: ModeAll},
			contains: []string{"triples c0_0", "triples c0_1"},
		},
		{
			name:     "text word",
			con:      Text("lovelace"),
			contains: []string{"c0.object REGEXP ?"},
			args:     []any{`(?i)(?:^|\W)lovelace(?:\W|$)`},
		},
		{
			name:     "text languages",
			con:      TextConstraint{Languages: []string{"en", ""}},
			contains: []string{"c0.lang IN (?, ?)"},
			args:     []any{"en", ""},
		},
		{
			name:     "numeric range",
			con:      RangeConstraint{Lower: 18, Upper: 65.5, Inclusive: true},
			contains: []string{"CAST(c0.object AS REAL) >= ?", "CAST(c0.object AS REAL) <= ?"},
			args:     []any{float64(18), 65.5},
		},
		{
			name:     "big numeric bound",
			con:      RangeConstraint{Lower: big.NewInt(10)},
			contains: []string{"CAST(c0.object AS REAL) > ?"},
			args:     []any{float64(10)},
		},
		{
			name:     "time range",
			con:      RangeConstraint{Upper: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
			contains: []string{"c0.object < ?"},
			args:     []any{datatype.DateTime.URI, "2024-01-02T03:04:05.000000000Z"},
		},
		{
			name:     "string range",
			con:      RangeConstraint{Lower: "a", Upper: "m"},
			contains: []string{"c0.object > ?", "c0.object < ?"},
			args:     []any{"a", "m"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := c.CompileReferences(testGraph, New().Where("urn:field", tt.con))
			require.NoError(t, err)
			requireBalanced(t, compiled)

			for _, s := range tt.contains {
				assert.Contains(t, compiled.Text, s)
			}
			for _, a := range tt.args {
				assert.Contains(t, compiled.Args, a)
			}
		})
	}
}

func TestCompileInvalid(t *testing.T) {
	c := newTestCompiler()

	tests := []struct {
		name  string
		query *FieldQuery
	}{
		{"nil query", nil},
		{"constraint on empty field", New().Where("", Exists())},
		{"selected empty field", New().Select("")},
		{"empty value constraint", New().Where("urn:f", ValueConstraint{})},
		{"unknown datatype name", New().Where("urn:f", ValueConstraint{DataTypes: []string{"Nope"}})},
		{"nil value", New().Where("urn:f", Equals(nil))},
		{"blank node value", New().Where("urn:f", Equals(value.Resource{Term: quad.BNode("x")}))},
		{"value not representable", New().Where("urn:f", ValueConstraint{Values: []any{"abc"}, DataTypes: []string{"Int"}})},
		{"empty reference", New().Where("urn:f", References(""))},
		{"no references", New().Where("urn:f", ReferenceConstraint{})},
		{"empty text constraint", New().Where("urn:f", TextConstraint{Texts: []string{""}})},
		{"bad regex", New().Where("urn:f", TextConstraint{Texts: []string{"("}, PatternType: PatternRegex})},
		{"range without bounds", New().Where("urn:f", RangeConstraint{})},
		{"range mixed bounds", New().Where("urn:f", RangeConstraint{Lower: 1, Upper: "z"})},
		{"range unsupported bound", New().Where("urn:f", RangeConstraint{Lower: struct{}{}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CompileReferences(testGraph, tt.query)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidQuery(err), "got %v", err)

			_, err = c.CompileRepresentations(testGraph, tt.query)
			assert.True(t, errors.IsInvalidQuery(err))
		})
	}
}

func TestCompiledQueriesOrderMatchedIDs(t *testing.T) {
	c := newTestCompiler()
	q := New().Where("urn:age", Exists()).WithLimit(10).WithOffset(20)

	refs, err := c.CompileReferences(testGraph, q)
	require.NoError(t, err)
	assert.Contains(t, refs.Text, "ORDER BY m.subject\nLIMIT ? OFFSET ?")

	reps, err := c.CompileRepresentations(testGraph, q)
	require.NoError(t, err)
	assert.Contains(t, reps.Text, "ORDER BY m.subject\nLIMIT ? OFFSET ?")
	assert.True(t, strings.HasSuffix(reps.Text, "ORDER BY ctx.root, t.rowid"))
}

func TestCompileRepresentations(t *testing.T) {
	c := newTestCompiler()

	t.Run("all fields", func(t *testing.T) {
		compiled, err := c.CompileRepresentations(testGraph, New().Where("urn:age", Exists()))
		require.NoError(t, err)
		requireBalanced(t, compiled)

		assert.Equal(t, TargetRepresentations, compiled.Target)
		assert.True(t, strings.HasPrefix(compiled.Text, "WITH RECURSIVE matched(id) AS ("))
		assert.Contains(t, compiled.Text, "SELECT ctx.root, t.subject, t.predicate, t.object, t.kind, t.datatype, t.lang")
		assert.NotContains(t, compiled.Text, "t.predicate IN")
	})

	t.Run("selected fields", func(t *testing.T) {
		q := New().Select("urn:name", "urn:address").WithLimit(5)
		compiled, err := c.CompileRepresentations(testGraph, q)
		require.NoError(t, err)
		requireBalanced(t, compiled)

		assert.Contains(t, compiled.Text, "t.predicate IN (?, ?, ?)")
		assert.Contains(t, compiled.Args, model.MarkerPredicate)
		assert.Contains(t, compiled.Args, "urn:name")
		assert.Contains(t, compiled.Args, "urn:address")
		assert.Equal(t, 5, compiled.Limit)
		// The last placeholders belong to the outer projection
		assert.Equal(t, []any{model.MarkerPredicate, "urn:address", "urn:name"}, compiled.Args[len(compiled.Args)-3:])
	})
}

func TestTextPattern(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		pt      PatternType
		cs      bool
		matches []string
		misses  []string
	}{
		{
			name:    "whole word case-insensitive",
			text:    "ada",
			matches: []string{"Ada Lovelace", "Countess ADA", "ada"},
			misses:  []string{"Adams", "canada"},
		},
		{
			name:    "case sensitive",
			text:    "Ada",
			cs:      true,
			matches: []string{"Ada Lovelace"},
			misses:  []string{"ada lovelace"},
		},
		{
			name:    "wildcard star",
			text:    "love*",
			pt:      PatternWildcard,
			matches: []string{"Ada Lovelace", "love"},
			misses:  []string{"glove"},
		},
		{
			name:    "wildcard question",
			text:    "b?t",
			pt:      PatternWildcard,
			matches: []string{"a bat", "bit"},
			misses:  []string{"boat"},
		},
		{
			name:    "quoted metacharacters",
			text:    "c++",
			matches: []string{"I like c++ a lot"},
			misses:  []string{"c"},
		},
		{
			name:    "regex",
			text:    "^A.a$",
			pt:      PatternRegex,
			matches: []string{"Ada", "ava"},
			misses:  []string{"Adam"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern, err := textPattern(tt.text, tt.pt, tt.cs)
			require.NoError(t, err)
			re := regexpMust(t, pattern)
			for _, s := range tt.matches {
				assert.True(t, re.MatchString(s), "%q should match %q", pattern, s)
			}
			for _, s := range tt.misses {
				assert.False(t, re.MatchString(s), "%q should not match %q", pattern, s)
			}
		})
	}
}

func regexpMust(t *testing.T, pattern string) *regexp.Regexp {
	t.Helper()
	re, err := regexp.Compile(pattern)
	require.NoError(t, err)
	return re
}
