package commands

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/entityhub/query"
)

// findOptions are the flags of yard find
type findOptions struct {
	selects []string
	where   []string
	refs    []string
	texts   []string
	ranges  []string
	exists  []string
	absent  []string
	types   []string

	languages     []string
	wildcard      bool
	regex         bool
	caseSensitive bool
	all           bool
	inclusive     bool

	limit  int
	offset int
}

// buildQuery turns find flags into a FieldQuery. Repeating a flag for the
// same field adds alternatives (or requirements with --all); mixing
// constraint kinds on one field is rejected.
func buildQuery(o findOptions) (*query.FieldQuery, error) {
	q := query.New().Select(o.selects...)
	mode := query.ModeAny
	if o.all {
		mode = query.ModeAll
	}

	constraints := make(map[string]query.Constraint)
	var order []string
	set := func(field string, c query.Constraint) error {
		if prev, ok := constraints[field]; ok && prev.Kind() != c.Kind() {
			return fmt.Errorf("field %s has both a %s and a %s constraint", field, prev.Kind(), c.Kind())
		}
		if _, ok := constraints[field]; !ok {
			order = append(order, field)
		}
		constraints[field] = c
		return nil
	}

	for _, arg := range o.where {
		field, raw, err := splitAssignment("where", arg)
		if err != nil {
			return nil, err
		}
		vc, _ := constraints[field].(query.ValueConstraint)
		vc.Values = append(vc.Values, parseScalar(raw))
		vc.Mode = mode
		if err := set(field, vc); err != nil {
			return nil, err
		}
	}

	for _, arg := range o.types {
		field, raw, err := splitAssignment("type", arg)
		if err != nil {
			return nil, err
		}
		vc, _ := constraints[field].(query.ValueConstraint)
		vc.DataTypes = append(vc.DataTypes, raw)
		vc.Mode = mode
		if err := set(field, vc); err != nil {
			return nil, err
		}
	}

	for _, arg := range o.refs {
		field, raw, err := splitAssignment("ref", arg)
		if err != nil {
			return nil, err
		}
		rc, _ := constraints[field].(query.ReferenceConstraint)
		rc.References = append(rc.References, raw)
		rc.Mode = mode
		if err := set(field, rc); err != nil {
			return nil, err
		}
	}

	pattern := query.PatternNone
	switch {
	case o.regex && o.wildcard:
		return nil, fmt.Errorf("--regex and --wildcard are mutually exclusive")
	case o.regex:
		pattern = query.PatternRegex
	case o.wildcard:
		pattern = query.PatternWildcard
	}
	for _, arg := range o.texts {
		field, raw, err := splitAssignment("text", arg)
		if err != nil {
			return nil, err
		}
		tc, _ := constraints[field].(query.TextConstraint)
		tc.Texts = append(tc.Texts, raw)
		tc.PatternType = pattern
		tc.CaseSensitive = o.caseSensitive
		tc.Languages = o.languages
		if err := set(field, tc); err != nil {
			return nil, err
		}
	}

	for _, arg := range o.ranges {
		field, raw, err := splitAssignment("range", arg)
		if err != nil {
			return nil, err
		}
		lower, upper, ok := strings.Cut(raw, "..")
		if !ok {
			return nil, fmt.Errorf("--range %s: want field=lower..upper", arg)
		}
		rc := query.RangeConstraint{Inclusive: o.inclusive}
		if lower != "" {
			rc.Lower = parseScalar(lower)
		}
		if upper != "" {
			rc.Upper = parseScalar(upper)
		}
		if _, ok := constraints[field]; ok {
			return nil, fmt.Errorf("field %s has more than one range", field)
		}
		if err := set(field, rc); err != nil {
			return nil, err
		}
	}

	for _, field := range o.exists {
		if err := set(field, query.Exists()); err != nil {
			return nil, err
		}
	}
	for _, field := range o.absent {
		if _, ok := constraints[field]; ok {
			return nil, fmt.Errorf("field %s cannot be both constrained and absent", field)
		}
		if err := set(field, query.Absent()); err != nil {
			return nil, err
		}
	}

	for _, field := range order {
		q.Where(field, constraints[field])
	}
	if o.limit > 0 {
		q.WithLimit(o.limit)
	}
	if o.offset > 0 {
		q.WithOffset(o.offset)
	}
	return q, nil
}

func splitAssignment(flag, arg string) (string, string, error) {
	field, raw, ok := strings.Cut(arg, "=")
	if !ok || field == "" {
		return "", "", fmt.Errorf("--%s %s: want field=value", flag, arg)
	}
	return field, raw, nil
}

// parseScalar reads a flag value the way a YAML scalar reads, so 36 is an
// integer and true a boolean. Anything that is not a plain scalar stays a
// string.
func parseScalar(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case int, int64, float64, bool:
		return v
	}
	return raw
}
