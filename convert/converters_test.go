package convert

import (
	"math/big"
	"net/url"
	"testing"
	"time"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/entityhub/datatype"
	"github.com/teranos/entityhub/value"
)

func convert(t *testing.T, v any, dt datatype.DataType) (any, bool) {
	t.Helper()
	return NewDefaultRegistry().Convert(v, dt.URI)
}

func TestBooleanConverter(t *testing.T) {
	tests := []struct {
		in   any
		want any
		ok   bool
	}{
		{true, true, true},
		{"TRUE", true, true},
		{"False", false, true},
		{"1", nil, false},
		{"yes", nil, false},
		{value.NewLiteral("true", datatype.Boolean), true, true},
	}
	for _, tt := range tests {
		got, ok := convert(t, tt.in, datatype.Boolean)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestIntegerFamily(t *testing.T) {
	tests := []struct {
		name string
		in   any
		dt   datatype.DataType
		want any
		ok   bool
	}{
		{"byte in range", 100, datatype.Byte, int8(100), true},
		{"byte overflow", 200, datatype.Byte, nil, false},
		{"short from string", "-300", datatype.Short, int16(-300), true},
		{"int from decimal string", "5.0", datatype.Int, int32(5), true},
		{"int from fraction", "5.5", datatype.Int, nil, false},
		{"int from integral float", 12.0, datatype.Int, int32(12), true},
		{"long native", int64(1 << 40), datatype.Long, int64(1 << 40), true},
		{"long from scientific", "1e3", datatype.Long, int64(1000), true},
		{"long from garbage", "abc", datatype.Long, nil, false},
		{"int from uint", uint16(7), datatype.Int, int32(7), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := convert(t, tt.in, tt.dt)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntegerConverter(t *testing.T) {
	got, ok := convert(t, "123456789012345678901234567890", datatype.Integer)
	require.True(t, ok)
	want, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	assert.Equal(t, 0, want.Cmp(got.(*big.Int)))

	_, ok = convert(t, 1.5, datatype.Integer)
	assert.False(t, ok)

	got, ok = convert(t, int16(3), datatype.Integer)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.(*big.Int).Int64())
}

func TestDecimalConverter(t *testing.T) {
	got, ok := convert(t, "3.14159265358979323846264338327950288", datatype.Decimal)
	require.True(t, ok)
	d := got.(*big.Float)
	assert.Equal(t, uint(DecimalPrecision), d.Prec())

	lex, ok := decimalConverter{}.Lexical(d)
	require.True(t, ok)
	assert.Contains(t, lex, "3.14159265358979323846")

	_, ok = convert(t, "pi", datatype.Decimal)
	assert.False(t, ok)
}

func TestFloatConverters(t *testing.T) {
	got, ok := convert(t, "1.5", datatype.Float)
	require.True(t, ok)
	assert.Equal(t, float32(1.5), got)

	got, ok = convert(t, 2, datatype.Double)
	require.True(t, ok)
	assert.Equal(t, 2.0, got)

	got, ok = convert(t, float32(0.5), datatype.Double)
	require.True(t, ok)
	assert.Equal(t, 0.5, got)

	_, ok = convert(t, "1e400", datatype.Double)
	assert.False(t, ok)
}

func TestTimeConverters(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	for _, in := range []any{
		want,
		"2024-03-01T12:30:00Z",
		"2024-03-01T13:30:00+01:00",
		"2024-03-01T12:30:00",
		value.NewLiteral("2024-03-01T12:30:00.000000000Z", datatype.DateTime),
	} {
		got, ok := convert(t, in, datatype.DateTime)
		require.True(t, ok, "%v", in)
		assert.True(t, want.Equal(got.(time.Time)), "%v", in)
	}

	got, ok := convert(t, "2024-03-01", datatype.Date)
	require.True(t, ok)
	lex, ok := timeConverter{dt: datatype.Date}.Lexical(got)
	require.True(t, ok)
	assert.Equal(t, "2024-03-01", lex)

	_, ok = convert(t, "yesterday", datatype.DateTime)
	assert.False(t, ok)
}

func TestDateTimeLexicalOrderIsChronological(t *testing.T) {
	c := timeConverter{dt: datatype.DateTime}
	earlier, _ := c.Lexical(time.Date(2024, 1, 1, 0, 0, 5, 0, time.UTC))
	later, _ := c.Lexical(time.Date(2024, 1, 1, 0, 0, 5, 500, time.UTC))
	assert.Less(t, earlier, later)
}

func TestDurationConverter(t *testing.T) {
	tests := []struct {
		in   any
		want time.Duration
		ok   bool
	}{
		{"PT1H30M", 90 * time.Minute, true},
		{"P1D", 24 * time.Hour, true},
		{"P1Y", 365 * 24 * time.Hour, true},
		{"P1M", 30 * 24 * time.Hour, true},
		{"-PT0.5S", -500 * time.Millisecond, true},
		{"1h30m", 90 * time.Minute, true},
		{int64(1500), 1500 * time.Millisecond, true},
		{"P", 0, false},
		{"PT", 0, false},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		got, ok := convert(t, tt.in, datatype.Duration)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "%v", tt.in)
		}
	}
}

func TestFormatDurationRoundTrips(t *testing.T) {
	for _, d := range []time.Duration{
		0,
		time.Second,
		90 * time.Minute,
		49*time.Hour + 1500*time.Millisecond,
		-(3*time.Hour + time.Nanosecond),
	} {
		parsed, ok := ParseDuration(FormatDuration(d))
		require.True(t, ok, FormatDuration(d))
		assert.Equal(t, d, parsed, FormatDuration(d))
	}
	assert.Equal(t, "PT0S", FormatDuration(0))
	assert.Equal(t, "P2DT1H1.5S", FormatDuration(49*time.Hour+1500*time.Millisecond))
}

func TestStringConverterIsTotal(t *testing.T) {
	inputs := []any{
		"plain",
		42,
		true,
		1.5,
		value.NewText("Ada", "en"),
		value.Reference("urn:e1"),
		value.Literal{Value: "x", DataType: "urn:unknown-datatype"},
		value.Resource{Term: quad.BNode("b1")},
		struct{ A int }{1},
		time.Second,
	}
	for _, in := range inputs {
		got, ok := convert(t, in, datatype.String)
		require.True(t, ok, "%#v", in)
		assert.NotEmpty(t, got, "%#v", in)
	}

	got, _ := convert(t, value.Literal{Value: "x", DataType: "urn:unknown-datatype"}, datatype.String)
	assert.Equal(t, "x", got)
}

func TestTextConverter(t *testing.T) {
	got, ok := convert(t, "hello", datatype.Text)
	require.True(t, ok)
	assert.Equal(t, value.Text{Text: "hello"}, got)

	got, ok = convert(t, value.NewText("hallo", "de"), datatype.Text)
	require.True(t, ok)
	assert.Equal(t, value.NewText("hallo", "de"), got)

	_, ok = convert(t, 42, datatype.Text)
	assert.False(t, ok)
	_, ok = convert(t, value.Reference("urn:x"), datatype.Text)
	assert.False(t, ok)
}

func TestURIConverters(t *testing.T) {
	u, _ := url.Parse("https://example.org/e1")

	for _, dt := range []datatype.DataType{datatype.AnyURI, datatype.Reference} {
		got, ok := convert(t, u, dt)
		require.True(t, ok)
		assert.Equal(t, value.Reference("https://example.org/e1"), got)

		got, ok = convert(t, "urn:e1", dt)
		require.True(t, ok)
		assert.Equal(t, value.Reference("urn:e1"), got)

		_, ok = convert(t, "relative/path", dt)
		assert.False(t, ok)
		_, ok = convert(t, "has space:x", dt)
		assert.False(t, ok)
	}
}
