// Package model holds Representation, the detached working set of one
// entity, and the Factory that creates Representations and values.
package model

import (
	"iter"
	"maps"
	"net/url"
	"reflect"
	"slices"

	"github.com/cayleygraph/quad"
	"go.uber.org/zap"

	"github.com/teranos/entityhub/convert"
	"github.com/teranos/entityhub/datatype"
	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/logger"
	"github.com/teranos/entityhub/value"
)

// Representation is the schema-less view of one entity: field id to the
// values of that field. Mutations only touch this copy until a yard stores it.
//
// A Representation is not safe for concurrent mutation.
type Representation struct {
	id       string
	fields   map[string][]value.Value
	order    []string
	nodes    []quad.Quad // facts of blank nodes owned by the entity
	registry *convert.Registry
	logger   *zap.SugaredLogger
}

func newRepresentation(id string, registry *convert.Registry, log *zap.SugaredLogger) *Representation {
	return &Representation{
		id:       id,
		fields:   make(map[string][]value.Value),
		registry: registry,
		logger:   logger.OrNop(log),
	}
}

// ID returns the entity id
func (r *Representation) ID() string { return r.id }

// Registry returns the converter registry typed accessors use
func (r *Representation) Registry() *convert.Registry { return r.registry }

func checkField(field string) error {
	if field == "" {
		return errors.NewInvalidArgumentError("field id must not be empty")
	}
	if field == MarkerPredicate {
		return errors.NewInvalidArgumentError("field id %s is reserved", MarkerPredicate)
	}
	return nil
}

// toValues normalizes v into values. Slices and arrays are expanded
// element-wise; nil elements and typed nils are dropped.
func (r *Representation) toValues(v any) []value.Value {
	switch vv := v.(type) {
	case nil:
		return nil
	case value.Literal:
		if vv.DataType == "" {
			return []value.Value{value.Text{Text: vv.Value}}
		}
		return []value.Value{vv}
	case value.Text:
		return []value.Value{value.NewText(vv.Text, vv.Lang)}
	case value.Resource:
		// Only blank nodes stay opaque; named terms become their plain value
		switch vv.Term.(type) {
		case nil:
			return nil
		case quad.BNode:
			return []value.Value{vv}
		}
		return []value.Value{value.FromQuad(vv.Term)}
	case value.Reference:
		if vv == "" {
			return nil
		}
		return []value.Value{vv}
	case value.Value:
		return []value.Value{vv}
	case *url.URL:
		if vv == nil {
			return nil
		}
		return []value.Value{value.Reference(vv.String())}
	case string:
		return []value.Value{value.Text{Text: vv}}
	case []byte:
		if vv == nil {
			return nil
		}
		return []value.Value{value.Text{Text: string(vv)}}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
	}
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		var out []value.Value
		for i := 0; i < rv.Len(); i++ {
			out = append(out, r.toValues(rv.Index(i).Interface())...)
		}
		return out
	}

	if lit, ok := r.registry.Literal(v); ok {
		return []value.Value{lit}
	}
	// No converter for the runtime type: keep the canonical string form
	s, _ := r.registry.Convert(v, datatype.String.URI)
	text, _ := s.(string)
	return []value.Value{value.Text{Text: text}}
}

func (r *Representation) appendValues(field string, values []value.Value) {
	existing, known := r.fields[field]
	for _, v := range values {
		if value.Contains(existing, v) {
			continue
		}
		existing = append(existing, v)
	}
	if len(existing) == 0 {
		return
	}
	if !known {
		r.order = append(r.order, field)
	}
	r.fields[field] = existing
}

// Add appends v to field. Values of the value package are stored as they
// are; other Go values are coerced to a typed literal keyed by their runtime
// type, falling back to untagged text. Adding nil does nothing.
func (r *Representation) Add(field string, v any) error {
	if err := checkField(field); err != nil {
		return err
	}
	values := r.toValues(v)
	if len(values) == 0 {
		r.logger.Debugw("Ignoring empty value", logger.FieldEntityID, r.id, logger.FieldField, field)
		return nil
	}
	r.appendValues(field, values)
	return nil
}

// AddReference adds a reference to field
func (r *Representation) AddReference(field, uri string) error {
	if err := checkField(field); err != nil {
		return err
	}
	if uri == "" {
		return errors.NewInvalidArgumentError("reference for field %s must not be empty", field)
	}
	r.appendValues(field, []value.Value{value.Reference(uri)})
	return nil
}

// AddNaturalText adds text once per language; no languages adds it untagged
func (r *Representation) AddNaturalText(field, text string, languages ...string) error {
	if err := checkField(field); err != nil {
		return err
	}
	r.appendValues(field, textValues(text, languages))
	return nil
}

func textValues(text string, languages []string) []value.Value {
	if len(languages) == 0 {
		return []value.Value{value.Text{Text: text}}
	}
	out := make([]value.Value, 0, len(languages))
	for _, lang := range languages {
		out = append(out, value.NewText(text, lang))
	}
	return out
}

// Set replaces all values of field with v. Set(field, nil) clears the field.
func (r *Representation) Set(field string, v any) error {
	if err := r.RemoveAll(field); err != nil {
		return err
	}
	return r.Add(field, v)
}

// SetReference replaces all values of field with one reference
func (r *Representation) SetReference(field, uri string) error {
	if err := r.RemoveAll(field); err != nil {
		return err
	}
	if uri == "" {
		return nil
	}
	return r.AddReference(field, uri)
}

// SetNaturalText replaces all values of field with text in the given languages
func (r *Representation) SetNaturalText(field, text string, languages ...string) error {
	if err := r.RemoveAll(field); err != nil {
		return err
	}
	return r.AddNaturalText(field, text, languages...)
}

func (r *Representation) removeValues(field string, values []value.Value) {
	existing, ok := r.fields[field]
	if !ok {
		return
	}
	existing = slices.DeleteFunc(existing, func(v value.Value) bool {
		return value.Contains(values, v)
	})
	r.setField(field, existing)
}

func (r *Representation) setField(field string, values []value.Value) {
	if len(values) == 0 {
		delete(r.fields, field)
		r.order = slices.DeleteFunc(r.order, func(f string) bool { return f == field })
		return
	}
	r.fields[field] = values
}

// Remove removes v from field. Removing a value not present does nothing.
func (r *Representation) Remove(field string, v any) error {
	if err := checkField(field); err != nil {
		return err
	}
	r.removeValues(field, r.toValues(v))
	return nil
}

// RemoveReference removes one reference from field
func (r *Representation) RemoveReference(field, uri string) error {
	return r.Remove(field, value.Reference(uri))
}

// RemoveNaturalText removes text in the given languages (untagged if none)
func (r *Representation) RemoveNaturalText(field, text string, languages ...string) error {
	if err := checkField(field); err != nil {
		return err
	}
	r.removeValues(field, textValues(text, languages))
	return nil
}

// RemoveAllNaturalText removes every Text of field in the given languages.
// Without languages all Text values are removed. Use "" for untagged text.
func (r *Representation) RemoveAllNaturalText(field string, languages ...string) error {
	if err := checkField(field); err != nil {
		return err
	}
	langs := make([]string, len(languages))
	for i, l := range languages {
		langs[i] = value.CanonicalLang(l)
	}
	existing := slices.DeleteFunc(slices.Clone(r.fields[field]), func(v value.Value) bool {
		t, ok := v.(value.Text)
		return ok && (len(langs) == 0 || slices.Contains(langs, t.Lang))
	})
	r.setField(field, existing)
	return nil
}

// RemoveAll removes every value of field
func (r *Representation) RemoveAll(field string) error {
	if err := checkField(field); err != nil {
		return err
	}
	r.setField(field, nil)
	return nil
}

// Values returns the raw values of field
func (r *Representation) Values(field string) iter.Seq[value.Value] {
	return func(yield func(value.Value) bool) {
		for _, v := range r.fields[field] {
			if !yield(v) {
				return
			}
		}
	}
}

// FieldNames returns every field with at least one value
func (r *Representation) FieldNames() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, f := range r.order {
			if !yield(f) {
				return
			}
		}
	}
}

// Len returns the number of fields with values
func (r *Representation) Len() int { return len(r.fields) }

// IsEmpty reports whether no field holds a value
func (r *Representation) IsEmpty() bool { return len(r.fields) == 0 }

// Get returns the values of field converted to T. Values that do not convert
// are skipped. The sequence reads the Representation each time it is ranged
// over.
func Get[T any](r *Representation, field string) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range r.fields[field] {
			t, ok := convert.As[T](r.registry, v)
			if !ok {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// First returns the first value of field that converts to T
func First[T any](r *Representation, field string) (T, bool) {
	for t := range Get[T](r, field) {
		return t, true
	}
	var zero T
	return zero, false
}

// First returns the first raw value of field
func (r *Representation) First(field string) (value.Value, bool) {
	values := r.fields[field]
	if len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// FirstReference returns the first reference of field
func (r *Representation) FirstReference(field string) (value.Reference, bool) {
	for _, v := range r.fields[field] {
		if ref, ok := v.(value.Reference); ok {
			return ref, true
		}
	}
	return "", false
}

// References returns the references of field
func (r *Representation) References(field string) iter.Seq[value.Reference] {
	return func(yield func(value.Reference) bool) {
		for _, v := range r.fields[field] {
			ref, ok := v.(value.Reference)
			if ok && !yield(ref) {
				return
			}
		}
	}
}

// Text returns the Text values of field in the given languages; without
// languages all Text values. Use "" to select untagged text.
func (r *Representation) Text(field string, languages ...string) iter.Seq[value.Text] {
	langs := make([]string, len(languages))
	for i, l := range languages {
		langs[i] = value.CanonicalLang(l)
	}
	return func(yield func(value.Text) bool) {
		for _, v := range r.fields[field] {
			t, ok := v.(value.Text)
			if !ok || (len(langs) > 0 && !slices.Contains(langs, t.Lang)) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// Clone returns a deep copy sharing only the registry and logger
func (r *Representation) Clone() *Representation {
	c := newRepresentation(r.id, r.registry, r.logger)
	c.order = slices.Clone(r.order)
	for f, values := range r.fields {
		c.fields[f] = slices.Clone(values)
	}
	c.nodes = slices.Clone(r.nodes)
	return c
}

// SameFields reports whether r and o hold the same fields with the same
// value sets, ignoring value order.
func (r *Representation) SameFields(o *Representation) bool {
	if o == nil || r.id != o.id || len(r.fields) != len(o.fields) {
		return false
	}
	for f, values := range r.fields {
		other, ok := o.fields[f]
		if !ok || len(other) != len(values) {
			return false
		}
		for _, v := range values {
			if !value.Contains(other, v) {
				return false
			}
		}
	}
	return true
}

// SortedFieldNames returns the field names in lexical order
func (r *Representation) SortedFieldNames() []string {
	return slices.Sorted(maps.Keys(r.fields))
}
