package query

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/teranos/entityhub/convert"
	"github.com/teranos/entityhub/datatype"
	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/model"
	"github.com/teranos/entityhub/value"
)

// Object kinds as stored in triples.kind
const (
	KindIRI     = 0
	KindBNode   = 1
	KindLiteral = 2
)

// Target is the shape of compiled query results
type Target int

const (
	// TargetReferences returns the ids of matching entities only
	TargetReferences Target = iota
	// TargetRepresentations returns the selected fields of matching entities
	// together with the blank-node facts hanging off them
	TargetRepresentations
)

func (t Target) String() string {
	if t == TargetRepresentations {
		return "representations"
	}
	return "references"
}

// Compiled is a query ready to run against one graph. Args follow the order
// of the placeholders in Text.
type Compiled struct {
	Target Target
	Text   string
	Args   []any
	// Limit is the effective limit; 0 means unbounded
	Limit  int
	Offset int
}

// Compiler turns FieldQuery values into SQL
type Compiler struct {
	registry     *convert.Registry
	defaultLimit int
	maxLimit     int
}

// NewCompiler creates a compiler. defaultLimit applies when a query sets no
// limit; maxLimit, when positive, caps every query.
func NewCompiler(registry *convert.Registry, defaultLimit, maxLimit int) *Compiler {
	if registry == nil {
		registry = convert.NewDefaultRegistry()
	}
	return &Compiler{registry: registry, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// ResolveLimit returns the effective limit for an explicit request. A
// non-positive explicit limit falls back to def; a positive max caps the
// result. 0 means unbounded.
func ResolveLimit(explicit, def, max int) int {
	limit := explicit
	if limit <= 0 {
		limit = def
	}
	if limit < 0 {
		limit = 0
	}
	if max > 0 && (limit == 0 || limit > max) {
		limit = max
	}
	return limit
}

// Limit returns the effective limit of q
func (c *Compiler) Limit(q *FieldQuery) int {
	return ResolveLimit(q.Limit, c.defaultLimit, c.maxLimit)
}

// CompileReferences compiles q into a query selecting matching entity ids.
// Selected fields are ignored.
func (c *Compiler) CompileReferences(graph string, q *FieldQuery) (*Compiled, error) {
	var b builder
	if err := c.matchQuery(&b, graph, q); err != nil {
		return nil, err
	}
	return &Compiled{
		Target: TargetReferences,
		Text:   b.String(),
		Args:   b.args,
		Limit:  c.Limit(q),
		Offset: max(q.Offset, 0),
	}, nil
}

// CompileRepresentations compiles q into a query returning the triples of
// each matching entity. Rows carry the entity id first, then the triple.
// With fields selected, only those fields (and the facts of blank nodes they
// reach) are returned; otherwise every field is.
func (c *Compiler) CompileRepresentations(graph string, q *FieldQuery) (*Compiled, error) {
	var b builder
	b.WriteString("WITH RECURSIVE matched(id) AS (\n")
	if err := c.matchQuery(&b, graph, q); err != nil {
		return nil, err
	}
	selected := q.Selected()

	b.WriteString("\n),\nctx(node, root) AS (\n")
	b.WriteString("  SELECT id, id FROM matched\n")
	b.WriteString("  UNION\n")
	b.WriteString("  SELECT t.object, ctx.root FROM triples t JOIN ctx ON t.subject = ctx.node\n")
	b.WriteString("  WHERE t.graph = ? AND t.kind = ?")
	b.args = append(b.args, graph, KindBNode)
	if len(selected) > 0 {
		b.WriteString(" AND (ctx.node <> ctx.root OR t.predicate IN (")
		b.list(selected)
		b.WriteString("))")
	}
	b.WriteString("\n)\n")
	b.WriteString("SELECT ctx.root, t.subject, t.predicate, t.object, t.kind, t.datatype, t.lang\n")
	b.WriteString("FROM ctx JOIN triples t ON t.graph = ? AND t.subject = ctx.node")
	b.args = append(b.args, graph)
	if len(selected) > 0 {
		b.WriteString("\nWHERE ctx.node <> ctx.root OR t.predicate IN (")
		b.list(append([]string{model.MarkerPredicate}, selected...))
		b.WriteString(")")
	}
	b.WriteString("\nORDER BY ctx.root, t.rowid")

	return &Compiled{
		Target: TargetRepresentations,
		Text:   b.String(),
		Args:   b.args,
		Limit:  c.Limit(q),
		Offset: max(q.Offset, 0),
	}, nil
}

// matchQuery writes the id-selecting query shared by both targets. Only
// subjects carrying the managed marker are entities.
func (c *Compiler) matchQuery(b *builder, graph string, q *FieldQuery) error {
	if q == nil {
		return errors.NewInvalidQueryError("nil query")
	}
	for _, f := range q.Selected() {
		if f == "" {
			return errors.NewInvalidQueryError("selected field with empty id")
		}
	}

	var clauses []string
	var args []any
	for i, field := range q.ConstrainedFields() {
		if field == "" {
			return errors.NewInvalidQueryError("constraint on field with empty id")
		}
		con, _ := q.Constraint(field)
		clause, clauseArgs, err := c.constraint(fmt.Sprintf("c%d", i), field, con)
		if err != nil {
			return errors.Wrapf(err, "field %s", field)
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}

	b.WriteString("SELECT m.subject FROM triples m\n")
	b.WriteString("WHERE m.graph = ? AND m.predicate = ?")
	b.args = append(b.args, graph, model.MarkerPredicate)
	for _, clause := range clauses {
		b.WriteString("\n  AND ")
		b.WriteString(clause)
	}
	b.args = append(b.args, args...)
	b.WriteString("\nORDER BY m.subject")

	limit := c.Limit(q)
	offset := max(q.Offset, 0)
	if limit > 0 {
		b.WriteString("\nLIMIT ? OFFSET ?")
		b.args = append(b.args, limit, offset)
	} else if offset > 0 {
		b.WriteString("\nLIMIT -1 OFFSET ?")
		b.args = append(b.args, offset)
	}
	return nil
}

// constraint renders one field constraint as a boolean SQL expression over
// the outer alias m
func (c *Compiler) constraint(alias, field string, con Constraint) (string, []any, error) {
	switch cc := con.(type) {
	case ExistsConstraint:
		expr, args := exists(alias, field, "", nil)
		if cc.Negate {
			expr = "NOT " + expr
		}
		return expr, args, nil
	case ValueConstraint:
		return c.valueConstraint(alias, field, cc)
	case ReferenceConstraint:
		return referenceConstraint(alias, field, cc)
	case TextConstraint:
		return textConstraint(alias, field, cc)
	case RangeConstraint:
		return c.rangeConstraint(alias, field, cc)
	case nil:
		return "", nil, errors.NewInvalidQueryError("nil constraint")
	}
	return "", nil, errors.NewInvalidQueryError("unsupported constraint %T", con)
}

// exists wraps cond into an EXISTS over the triples of field on the matched
// subject. cond refers to the inner alias.
func exists(alias, field, cond string, condArgs []any) (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "EXISTS (SELECT 1 FROM triples %[1]s WHERE %[1]s.graph = m.graph AND %[1]s.subject = m.subject AND %[1]s.predicate = ?", alias)
	if cond != "" {
		sb.WriteString(" AND (")
		sb.WriteString(cond)
		sb.WriteString(")")
	}
	sb.WriteString(")")
	return sb.String(), append([]any{field}, condArgs...)
}

// matcher renders the condition of one value against an inner alias
type matcher func(alias string) (string, []any, error)

// combine joins per-value conditions according to mode: one EXISTS with an
// OR for ModeAny, one EXISTS per value for ModeAll
func combine(alias, field string, mode Mode, matchers []matcher) (string, []any, error) {
	if mode == ModeAll {
		parts := make([]string, 0, len(matchers))
		var args []any
		for i, match := range matchers {
			inner := fmt.Sprintf("%s_%d", alias, i)
			cond, condArgs, err := match(inner)
			if err != nil {
				return "", nil, err
			}
			expr, a := exists(inner, field, cond, condArgs)
			parts = append(parts, expr)
			args = append(args, a...)
		}
		return "(" + strings.Join(parts, " AND ") + ")", args, nil
	}

	conds := make([]string, 0, len(matchers))
	var args []any
	for _, match := range matchers {
		cond, a, err := match(alias)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, cond)
		args = append(args, a...)
	}
	expr, all := exists(alias, field, strings.Join(conds, " OR "), args)
	return expr, all, nil
}

var stringTypes = []any{"", datatype.String.URI}

func (c *Compiler) valueConstraint(alias, field string, vc ValueConstraint) (string, []any, error) {
	dts := make([]string, 0, len(vc.DataTypes))
	for _, name := range vc.DataTypes {
		uri, ok := datatype.Resolve(name)
		if !ok {
			return "", nil, errors.NewInvalidQueryError("unknown datatype %q", name)
		}
		dts = append(dts, uri)
	}

	if len(vc.Values) == 0 {
		if len(dts) == 0 {
			return "", nil, errors.NewInvalidQueryError("value constraint without values or datatypes")
		}
		var conds []string
		var args []any
		for _, dt := range dts {
			cond, a := datatypeMatch(alias, dt)
			conds = append(conds, cond)
			args = append(args, a...)
		}
		expr, all := exists(alias, field, strings.Join(conds, " OR "), args)
		return expr, all, nil
	}

	matchers := make([]matcher, 0, len(vc.Values))
	for _, v := range vc.Values {
		matchers = append(matchers, func(inner string) (string, []any, error) {
			return c.valueMatch(inner, v, dts)
		})
	}
	return combine(alias, field, vc.Mode, matchers)
}

// datatypeMatch matches any value of one datatype
func datatypeMatch(alias, dt string) (string, []any) {
	switch dt {
	case datatype.Reference.URI:
		return alias + ".kind = ?", []any{KindIRI}
	case datatype.String.URI, datatype.Text.URI:
		return fmt.Sprintf("(%[1]s.kind = ? AND %[1]s.datatype IN (?, ?))", alias), append([]any{KindLiteral}, stringTypes...)
	}
	return fmt.Sprintf("(%[1]s.kind = ? AND %[1]s.datatype = ?)", alias), []any{KindLiteral, dt}
}

// valueMatch matches one value. Typed values match exactly; native Go
// values are converted into each candidate datatype and match any of them.
func (c *Compiler) valueMatch(alias string, v any, dts []string) (string, []any, error) {
	switch vv := v.(type) {
	case nil:
		return "", nil, errors.NewInvalidQueryError("nil value")
	case value.Resource:
		return "", nil, errors.NewInvalidQueryError("blank node values cannot be matched")
	case value.Reference:
		return referenceMatch(alias, string(vv))
	case value.Text:
		if vv.Lang == "" {
			return textMatch(alias, vv.Text)
		}
		return fmt.Sprintf("(%[1]s.kind = ? AND %[1]s.datatype = '' AND %[1]s.object = ? AND %[1]s.lang = ?)", alias),
			[]any{KindLiteral, vv.Text, value.CanonicalLang(vv.Lang)}, nil
	case value.Literal:
		if vv.DataType == "" || vv.DataType == datatype.String.URI {
			return textMatch(alias, vv.Value)
		}
		return literalMatch(alias, vv.Value, vv.DataType)
	}

	if len(dts) == 0 {
		dt := datatype.String
		if d, ok := convert.TypeOf(v); ok {
			dt = d
		}
		dts = []string{dt.URI}
	}

	var conds []string
	var args []any
	for _, dt := range dts {
		var (
			cond string
			a    []any
			err  error
		)
		switch dt {
		case datatype.String.URI, datatype.Text.URI:
			str, ok := c.stringOf(v)
			if !ok {
				continue
			}
			cond, a, err = textMatch(alias, str)
		case datatype.Reference.URI:
			native, ok := c.registry.Convert(v, dt)
			ref, isRef := native.(value.Reference)
			if !ok || !isRef {
				continue
			}
			cond, a, err = referenceMatch(alias, string(ref))
		default:
			lexical, ok := c.lexical(v, dt)
			if !ok {
				continue
			}
			cond, a, err = literalMatch(alias, lexical, dt)
		}
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, cond)
		args = append(args, a...)
	}
	if len(conds) == 0 {
		return "", nil, errors.NewInvalidQueryError("value %v is not representable in %s", v, strings.Join(dts, ", "))
	}
	return "(" + strings.Join(conds, " OR ") + ")", args, nil
}

// lexical converts v into the lexical form of dt. Datatypes without a
// converter use the string form of v.
func (c *Compiler) lexical(v any, dt string) (string, bool) {
	conv, ok := c.registry.Converter(dt)
	if !ok {
		return c.stringOf(v)
	}
	native, ok := conv.Convert(v)
	if !ok {
		return "", false
	}
	return conv.Lexical(native)
}

func (c *Compiler) stringOf(v any) (string, bool) {
	native, ok := c.registry.Convert(v, datatype.String.URI)
	if !ok {
		return "", false
	}
	str, ok := native.(string)
	return str, ok
}

func referenceMatch(alias, uri string) (string, []any, error) {
	if uri == "" {
		return "", nil, errors.NewInvalidQueryError("empty reference")
	}
	return fmt.Sprintf("(%[1]s.kind = ? AND %[1]s.object = ?)", alias), []any{KindIRI, uri}, nil
}

// textMatch matches a plain string against untagged, tagged and xsd:string
// values alike
func textMatch(alias, s string) (string, []any, error) {
	return fmt.Sprintf("(%[1]s.kind = ? AND %[1]s.datatype IN (?, ?) AND %[1]s.object = ?)", alias),
		[]any{KindLiteral, stringTypes[0], stringTypes[1], s}, nil
}

func literalMatch(alias, lexical, dt string) (string, []any, error) {
	return fmt.Sprintf("(%[1]s.kind = ? AND %[1]s.datatype = ? AND %[1]s.object = ?)", alias),
		[]any{KindLiteral, dt, lexical}, nil
}

func referenceConstraint(alias, field string, rc ReferenceConstraint) (string, []any, error) {
	if len(rc.References) == 0 {
		return "", nil, errors.NewInvalidQueryError("reference constraint without references")
	}
	matchers := make([]matcher, 0, len(rc.References))
	for _, ref := range rc.References {
		matchers = append(matchers, func(inner string) (string, []any, error) {
			return referenceMatch(inner, ref)
		})
	}
	return combine(alias, field, rc.Mode, matchers)
}

func textConstraint(alias, field string, tc TextConstraint) (string, []any, error) {
	var texts []string
	for _, t := range tc.Texts {
		if t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 && len(tc.Languages) == 0 {
		return "", nil, errors.NewInvalidQueryError("text constraint without texts or languages")
	}

	cond := fmt.Sprintf("%[1]s.kind = ? AND %[1]s.datatype IN (?, ?)", alias)
	args := []any{KindLiteral, stringTypes[0], stringTypes[1]}

	if len(texts) > 0 {
		patterns := make([]string, 0, len(texts))
		for _, t := range texts {
			p, err := textPattern(t, tc.PatternType, tc.CaseSensitive)
			if err != nil {
				return "", nil, errors.NewInvalidQueryError("invalid pattern %q: %v", t, err)
			}
			patterns = append(patterns, alias+".object REGEXP ?")
			args = append(args, p)
		}
		cond += " AND (" + strings.Join(patterns, " OR ") + ")"
	}

	if len(tc.Languages) > 0 {
		cond += " AND " + alias + ".lang IN (" + placeholders(len(tc.Languages)) + ")"
		for _, l := range tc.Languages {
			args = append(args, value.CanonicalLang(l))
		}
	}

	expr, all := exists(alias, field, cond, args)
	return expr, all, nil
}

type boundKind int

const (
	boundNone boundKind = iota
	boundNumber
	boundTime
	boundString
)

// bound classifies a range bound and returns its SQL comparison value
func (c *Compiler) bound(v any) (boundKind, any, error) {
	switch vv := v.(type) {
	case nil:
		return boundNone, nil, nil
	case time.Time:
		return boundTime, convert.FormatDateTime(vv), nil
	case string:
		return boundString, vv, nil
	case value.Text:
		return boundString, vv.Text, nil
	case value.Literal:
		if dt, ok := datatype.ByURI(vv.DataType); ok {
			native, ok := c.registry.Convert(vv.Value, dt.URI)
			if ok {
				return c.bound(native)
			}
		}
		return boundString, vv.Value, nil
	case *big.Int, *big.Float, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, ok := convert.As[float64](c.registry, vv)
		if !ok {
			return boundNone, nil, errors.NewInvalidQueryError("range bound %v is out of range", v)
		}
		return boundNumber, f, nil
	}
	return boundNone, nil, errors.NewInvalidQueryError("unsupported range bound %T", v)
}

func (c *Compiler) rangeConstraint(alias, field string, rc RangeConstraint) (string, []any, error) {
	lk, lower, err := c.bound(rc.Lower)
	if err != nil {
		return "", nil, err
	}
	uk, upper, err := c.bound(rc.Upper)
	if err != nil {
		return "", nil, err
	}
	if lk == boundNone && uk == boundNone {
		return "", nil, errors.NewInvalidQueryError("range constraint without bounds")
	}
	if lk != boundNone && uk != boundNone && lk != uk {
		return "", nil, errors.NewInvalidQueryError("range bounds %T and %T are not comparable", rc.Lower, rc.Upper)
	}
	kind := max(lk, uk)

	var cond, operand string
	var args []any
	switch kind {
	case boundNumber:
		numeric := datatype.NumericURIs()
		cond = fmt.Sprintf("%[1]s.kind = ? AND %[1]s.datatype IN (%[2]s)", alias, placeholders(len(numeric)))
		args = append(args, KindLiteral)
		for _, uri := range numeric {
			args = append(args, uri)
		}
		operand = "CAST(" + alias + ".object AS REAL)"
	case boundTime:
		cond = fmt.Sprintf("%[1]s.kind = ? AND %[1]s.datatype = ?", alias)
		args = append(args, KindLiteral, datatype.DateTime.URI)
		operand = alias + ".object"
	default:
		cond = fmt.Sprintf("%[1]s.kind = ? AND %[1]s.datatype IN (?, ?)", alias)
		args = append(args, KindLiteral, stringTypes[0], stringTypes[1])
		operand = alias + ".object"
	}

	lowerOp, upperOp := ">", "<"
	if rc.Inclusive {
		lowerOp, upperOp = ">=", "<="
	}
	if lk != boundNone {
		cond += fmt.Sprintf(" AND %s %s ?", operand, lowerOp)
		args = append(args, lower)
	}
	if uk != boundNone {
		cond += fmt.Sprintf(" AND %s %s ?", operand, upperOp)
		args = append(args, upper)
	}

	expr, all := exists(alias, field, cond, args)
	return expr, all, nil
}
