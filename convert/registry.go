// Package convert maps between native Go values and the datatypes of the
// catalog.
//
// A Registry holds one Converter per datatype URI. Converters never fail
// loudly: a value that cannot be represented in a datatype yields ok=false,
// which callers treat as "skip this value" rather than as an error.
package convert

import (
	"maps"
	"math/big"
	"net/url"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/teranos/entityhub/datatype"
	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/value"
)

// Converter converts values to and from one datatype
type Converter interface {
	// DataType is the datatype URI the converter is registered under
	DataType() string
	// Convert returns v as the converter's native Go type
	Convert(v any) (any, bool)
	// Lexical returns the canonical lexical form of a native value
	Lexical(native any) (string, bool)
}

// Registry holds the converters by datatype URI
type Registry struct {
	mu                 sync.RWMutex
	converters         map[string]Converter
	readOnly           bool
	durationNullAsZero bool
}

// Option configures a Registry
type Option func(*Registry)

// WithDurationNullAsZero makes the Duration converter treat a nil input as a
// zero-length duration.
func WithDurationNullAsZero() Option {
	return func(r *Registry) { r.durationNullAsZero = true }
}

// NewRegistry returns a mutable registry holding the built-in converters
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{converters: make(map[string]Converter)}
	for _, opt := range opts {
		opt(r)
	}
	for _, c := range builtins(r.durationNullAsZero) {
		r.converters[c.DataType()] = c
	}
	return r
}

// NewDefaultRegistry returns a read-only registry holding the built-in
// converters. Register on it fails with ErrConfiguration.
func NewDefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	r.readOnly = true
	return r
}

// ReadOnly reports whether Register is rejected
func (r *Registry) ReadOnly() bool { return r.readOnly }

// Register adds c, replacing any converter for the same datatype
func (r *Registry) Register(c Converter) error {
	if c == nil || c.DataType() == "" {
		return errors.NewInvalidArgumentError("converter without datatype")
	}
	if r.readOnly {
		return errors.NewConfigurationError("registry is read-only, cannot register converter for %s", c.DataType())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[c.DataType()] = c
	return nil
}

// Converter returns the converter registered for a datatype URI
func (r *Registry) Converter(dataType string) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.converters[dataType]
	return c, ok
}

// DataTypes lists the datatype URIs with a registered converter, sorted
func (r *Registry) DataTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.converters))
}

// Convert converts v to the native type of dataType. It returns false when
// no converter is registered, v is a typed nil or v is not representable
// in dataType.
func (r *Registry) Convert(v any, dataType string) (any, bool) {
	if isTypedNil(v) {
		return nil, false
	}
	c, ok := r.Converter(dataType)
	if !ok {
		return nil, false
	}
	return c.Convert(v)
}

// Literal converts a native Go value into a typed literal keyed by its
// runtime type. ok is false when no converter matches the type.
func (r *Registry) Literal(v any) (value.Literal, bool) {
	if isTypedNil(v) {
		return value.Literal{}, false
	}
	dt, ok := TypeOf(v)
	if !ok {
		return value.Literal{}, false
	}
	c, ok := r.Converter(dt.URI)
	if !ok {
		return value.Literal{}, false
	}
	native, ok := c.Convert(v)
	if !ok {
		return value.Literal{}, false
	}
	lexical, ok := c.Lexical(native)
	if !ok {
		return value.Literal{}, false
	}
	return value.NewLiteral(lexical, dt), true
}

// TypeOf returns the datatype whose converter natively handles v's runtime
// type. Text, Reference and Resource values are not literals and report false.
func TypeOf(v any) (datatype.DataType, bool) {
	switch v.(type) {
	case bool:
		return datatype.Boolean, true
	case int8:
		return datatype.Byte, true
	case int16:
		return datatype.Short, true
	case int32:
		return datatype.Int, true
	case int, int64:
		return datatype.Long, true
	case *big.Int:
		return datatype.Integer, true
	case *big.Float:
		return datatype.Decimal, true
	case float32:
		return datatype.Float, true
	case float64:
		return datatype.Double, true
	case time.Time:
		return datatype.DateTime, true
	case time.Duration:
		return datatype.Duration, true
	case string:
		return datatype.String, true
	case *url.URL:
		return datatype.AnyURI, true
	}
	return datatype.DataType{}, false
}

// target maps a requested Go type to the datatype that produces it
var target = map[reflect.Type]string{
	reflect.TypeFor[bool]():            datatype.Boolean.URI,
	reflect.TypeFor[int8]():            datatype.Byte.URI,
	reflect.TypeFor[int16]():           datatype.Short.URI,
	reflect.TypeFor[int32]():           datatype.Int.URI,
	reflect.TypeFor[int64]():           datatype.Long.URI,
	reflect.TypeFor[*big.Int]():        datatype.Integer.URI,
	reflect.TypeFor[*big.Float]():      datatype.Decimal.URI,
	reflect.TypeFor[float32]():         datatype.Float.URI,
	reflect.TypeFor[float64]():         datatype.Double.URI,
	reflect.TypeFor[time.Time]():       datatype.DateTime.URI,
	reflect.TypeFor[time.Duration]():   datatype.Duration.URI,
	reflect.TypeFor[string]():          datatype.String.URI,
	reflect.TypeFor[value.Text]():      datatype.Text.URI,
	reflect.TypeFor[value.Reference](): datatype.Reference.URI,
}

// As converts v to T through the registry. Values already of type T are
// returned unchanged; int is served by the Long converter.
func As[T any](r *Registry, v any) (T, bool) {
	var zero T
	if t, ok := v.(T); ok {
		return t, true
	}

	rt := reflect.TypeFor[T]()
	if rt == reflect.TypeFor[int]() {
		n, ok := As[int64](r, v)
		if !ok || int64(int(n)) != n {
			return zero, false
		}
		return any(int(n)).(T), true
	}

	dt, ok := target[rt]
	if !ok {
		return zero, false
	}
	out, ok := r.Convert(v, dt)
	if !ok {
		return zero, false
	}
	t, ok := out.(T)
	return t, ok
}
