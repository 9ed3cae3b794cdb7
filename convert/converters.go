package convert

import (
	"fmt"
	"math"
	"math/big"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/entityhub/datatype"
	"github.com/teranos/entityhub/value"
)

// DecimalPrecision is the mantissa precision of Decimal values in bits
const DecimalPrecision = 256

func builtins(durationNullAsZero bool) []Converter {
	return []Converter{
		booleanConverter{},
		intConverter{dt: datatype.Byte, bits: 8},
		intConverter{dt: datatype.Short, bits: 16},
		intConverter{dt: datatype.Int, bits: 32},
		intConverter{dt: datatype.Long, bits: 64},
		integerConverter{},
		decimalConverter{},
		floatConverter{dt: datatype.Float, bits: 32},
		floatConverter{dt: datatype.Double, bits: 64},
		timeConverter{dt: datatype.DateTime},
		timeConverter{dt: datatype.Date},
		timeConverter{dt: datatype.Time},
		durationConverter{nullAsZero: durationNullAsZero},
		stringConverter{},
		textConverter{},
		uriConverter{dt: datatype.AnyURI},
		uriConverter{dt: datatype.Reference},
	}
}

// lexicalOf extracts the string form of values that carry one
func lexicalOf(v any) (string, bool) {
	switch vv := v.(type) {
	case string:
		return vv, true
	case value.Text:
		return vv.Text, true
	case value.Reference:
		return string(vv), true
	case value.Literal:
		return vv.Value, true
	case []byte:
		return string(vv), true
	case fmt.Stringer:
		if isTypedNil(vv) {
			return "", false
		}
		return vv.String(), true
	}
	return "", false
}

// isTypedNil reports whether v holds a nil pointer, map, channel or func.
// Untyped nil is left to the converters.
func isTypedNil(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// integerOf returns v as int64 for any Go integer kind that fits
func integerOf(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

// floatOf returns v as float64 for Go float kinds
func floatOf(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

// parseRational parses decimal and scientific notation exactly
func parseRational(s string) (*big.Rat, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	return new(big.Rat).SetString(strings.TrimPrefix(s, "+"))
}

// integral returns v as an int64 within the signed range of bits, accepting
// integers, integral floats and numeric strings ("5", "5.0", "5e0").
func integral(v any, bits int) (int64, bool) {
	lo := int64(-1) << (bits - 1)
	hi := -(lo + 1)

	if n, ok := integerOf(v); ok {
		return n, n >= lo && n <= hi
	}
	if f, ok := floatOf(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		limit := math.Ldexp(1, bits-1)
		if f < -limit || f >= limit {
			return 0, false
		}
		return int64(f), true
	}
	s, ok := lexicalOf(v)
	if !ok {
		return 0, false
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, bits); err == nil {
		return n, true
	}
	rat, ok := parseRational(s)
	if !ok || !rat.IsInt() || !rat.Num().IsInt64() {
		return 0, false
	}
	n := rat.Num().Int64()
	return n, n >= lo && n <= hi
}

type booleanConverter struct{}

func (booleanConverter) DataType() string { return datatype.Boolean.URI }

func (booleanConverter) Convert(v any) (any, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	s, ok := lexicalOf(v)
	if !ok {
		return nil, false
	}
	// strconv.ParseBool would also accept "1" and "t"
	switch {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	}
	return nil, false
}

func (booleanConverter) Lexical(native any) (string, bool) {
	b, ok := native.(bool)
	if !ok {
		return "", false
	}
	return strconv.FormatBool(b), true
}

// intConverter serves Byte, Short, Int and Long
type intConverter struct {
	dt   datatype.DataType
	bits int
}

func (c intConverter) DataType() string { return c.dt.URI }

func (c intConverter) Convert(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	n, ok := integral(v, c.bits)
	if !ok {
		return nil, false
	}
	switch c.bits {
	case 8:
		return int8(n), true
	case 16:
		return int16(n), true
	case 32:
		return int32(n), true
	}
	return n, true
}

func (c intConverter) Lexical(native any) (string, bool) {
	n, ok := integerOf(native)
	if !ok {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

type integerConverter struct{}

func (integerConverter) DataType() string { return datatype.Integer.URI }

func (integerConverter) Convert(v any) (any, bool) {
	switch vv := v.(type) {
	case nil:
		return nil, false
	case *big.Int:
		return vv, vv != nil
	case *big.Float:
		if vv == nil || !vv.IsInt() {
			return nil, false
		}
		i, _ := vv.Int(nil)
		return i, true
	}
	if n, ok := integerOf(v); ok {
		return big.NewInt(n), true
	}
	if f, ok := floatOf(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return nil, false
		}
		i, _ := big.NewFloat(f).Int(nil)
		return i, true
	}
	s, ok := lexicalOf(v)
	if !ok {
		return nil, false
	}
	rat, ok := parseRational(s)
	if !ok || !rat.IsInt() {
		return nil, false
	}
	return new(big.Int).Set(rat.Num()), true
}

func (integerConverter) Lexical(native any) (string, bool) {
	i, ok := native.(*big.Int)
	if !ok || i == nil {
		return "", false
	}
	return i.String(), true
}

type decimalConverter struct{}

func (decimalConverter) DataType() string { return datatype.Decimal.URI }

func (decimalConverter) Convert(v any) (any, bool) {
	switch vv := v.(type) {
	case nil:
		return nil, false
	case *big.Float:
		return vv, vv != nil
	case *big.Int:
		if vv == nil {
			return nil, false
		}
		return new(big.Float).SetPrec(DecimalPrecision).SetInt(vv), true
	}
	if n, ok := integerOf(v); ok {
		return new(big.Float).SetPrec(DecimalPrecision).SetInt64(n), true
	}
	if f, ok := floatOf(v); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return new(big.Float).SetPrec(DecimalPrecision).SetFloat64(f), true
	}
	s, ok := lexicalOf(v)
	if !ok {
		return nil, false
	}
	d, ok := new(big.Float).SetPrec(DecimalPrecision).SetString(strings.TrimSpace(s))
	if !ok || d.IsInf() {
		return nil, false
	}
	return d, true
}

func (decimalConverter) Lexical(native any) (string, bool) {
	d, ok := native.(*big.Float)
	if !ok || d == nil {
		return "", false
	}
	return d.Text('f', -1), true
}

// floatConverter serves Float (32 bit) and Double (64 bit)
type floatConverter struct {
	dt   datatype.DataType
	bits int
}

func (c floatConverter) DataType() string { return c.dt.URI }

func (c floatConverter) Convert(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	var f float64
	if ff, ok := floatOf(v); ok {
		f = ff
	} else if n, ok := integerOf(v); ok {
		f = float64(n)
	} else {
		s, ok := lexicalOf(v)
		if !ok {
			return nil, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), c.bits)
		if err != nil {
			return nil, false
		}
		f = parsed
	}
	if c.bits == 32 {
		if math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
			return nil, false
		}
		return float32(f), true
	}
	return f, true
}

func (c floatConverter) Lexical(native any) (string, bool) {
	f, ok := floatOf(native)
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(f, 'g', -1, c.bits), true
}

// Canonical lexical layouts. DateTime uses a fixed-width UTC form so that
// lexical order equals chronological order.
const (
	DateTimeLayout = "2006-01-02T15:04:05.000000000Z"
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05.000000000Z"
)

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	DateLayout,
	"15:04:05.999999999Z07:00",
	"15:04:05.999999999",
	"15:04:05",
}

// timeConverter serves DateTime, Date and Time
type timeConverter struct {
	dt datatype.DataType
}

func (c timeConverter) DataType() string { return c.dt.URI }

func (c timeConverter) Convert(v any) (any, bool) {
	switch vv := v.(type) {
	case nil:
		return nil, false
	case time.Time:
		return vv, true
	case *time.Time:
		if vv == nil {
			return nil, false
		}
		return *vv, true
	}
	s, ok := lexicalOf(v)
	if !ok {
		return nil, false
	}
	t, ok := ParseTime(s)
	if !ok {
		return nil, false
	}
	return t, true
}

func (c timeConverter) Lexical(native any) (string, bool) {
	t, ok := native.(time.Time)
	if !ok {
		return "", false
	}
	t = t.UTC()
	switch c.dt {
	case datatype.Date:
		return t.Format(DateLayout), true
	case datatype.Time:
		return t.Format(TimeLayout), true
	}
	return t.Format(DateTimeLayout), true
}

// ParseTime parses the date and time forms accepted by the time converters.
// Values without a zone are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDateTime renders t in the canonical DateTime lexical form
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}

type durationConverter struct {
	nullAsZero bool
}

func (durationConverter) DataType() string { return datatype.Duration.URI }

func (c durationConverter) Convert(v any) (any, bool) {
	switch vv := v.(type) {
	case nil:
		if c.nullAsZero {
			return time.Duration(0), true
		}
		return nil, false
	case time.Duration:
		return vv, true
	}
	// Plain numbers are milliseconds
	if n, ok := integerOf(v); ok {
		return time.Duration(n) * time.Millisecond, true
	}
	s, ok := lexicalOf(v)
	if !ok {
		return nil, false
	}
	d, ok := ParseDuration(s)
	if !ok {
		return nil, false
	}
	return d, true
}

func (durationConverter) Lexical(native any) (string, bool) {
	d, ok := native.(time.Duration)
	if !ok {
		return "", false
	}
	return FormatDuration(d), true
}

type stringConverter struct{}

func (stringConverter) DataType() string { return datatype.String.URI }

// Convert is total for every non-nil input
func (stringConverter) Convert(v any) (any, bool) {
	switch vv := v.(type) {
	case nil:
		return nil, false
	case value.Resource:
		return vv.Lexical(), true
	case time.Time:
		return FormatDateTime(vv), true
	case time.Duration:
		return FormatDuration(vv), true
	case *big.Float:
		if vv != nil {
			return vv.Text('f', -1), true
		}
	}
	if s, ok := lexicalOf(v); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

func (stringConverter) Lexical(native any) (string, bool) {
	s, ok := native.(string)
	return s, ok
}

// textConverter converts strings into untagged Text. Numbers and
// references are not text and do not convert.
type textConverter struct{}

func (textConverter) DataType() string { return datatype.Text.URI }

func (textConverter) Convert(v any) (any, bool) {
	switch vv := v.(type) {
	case value.Text:
		return vv, true
	case string:
		return value.Text{Text: vv}, true
	case value.Literal:
		if s, ok := value.StringLiteral(vv); ok {
			return value.Text{Text: s}, true
		}
	}
	return nil, false
}

func (textConverter) Lexical(native any) (string, bool) {
	t, ok := native.(value.Text)
	if !ok {
		return "", false
	}
	return t.Text, true
}

// uriConverter serves AnyURI and Reference. Only absolute URIs convert.
type uriConverter struct {
	dt datatype.DataType
}

func (c uriConverter) DataType() string { return c.dt.URI }

func (c uriConverter) Convert(v any) (any, bool) {
	switch vv := v.(type) {
	case nil:
		return nil, false
	case value.Reference:
		return vv, vv != ""
	case *url.URL:
		if vv == nil || !vv.IsAbs() {
			return nil, false
		}
		return value.Reference(vv.String()), true
	case value.Resource:
		return nil, false
	}
	s, ok := lexicalOf(v)
	if !ok {
		return nil, false
	}
	ref, ok := ParseReference(s)
	if !ok {
		return nil, false
	}
	return ref, true
}

func (c uriConverter) Lexical(native any) (string, bool) {
	switch vv := native.(type) {
	case value.Reference:
		return string(vv), true
	case *url.URL:
		if vv != nil {
			return vv.String(), true
		}
	}
	return "", false
}

// ParseReference validates s as an absolute URI
func ParseReference(s string) (value.Reference, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return "", false
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return "", false
	}
	return value.Reference(s), true
}
