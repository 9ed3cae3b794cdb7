// Package datatype is the catalog of datatype URIs that key typed literals
// and value converters.
package datatype

import "strings"

// XSD is the XML Schema namespace most catalog entries live in
const XSD = "http://www.w3.org/2001/XMLSchema#"

// Namespace holds the datatypes entityhub defines itself
const Namespace = "urn:entityhub:datatype:"

// DataType pairs a short name with its canonical URI
type DataType struct {
	Name string
	URI  string
}

func (d DataType) String() string { return d.URI }

// IsZero reports whether d is the zero DataType
func (d DataType) IsZero() bool { return d.URI == "" }

var (
	Boolean  = DataType{"Boolean", XSD + "boolean"}
	Byte     = DataType{"Byte", XSD + "byte"}
	Short    = DataType{"Short", XSD + "short"}
	Int      = DataType{"Int", XSD + "int"}
	Long     = DataType{"Long", XSD + "long"}
	Integer  = DataType{"Integer", XSD + "integer"}
	Decimal  = DataType{"Decimal", XSD + "decimal"}
	Float    = DataType{"Float", XSD + "float"}
	Double   = DataType{"Double", XSD + "double"}
	DateTime = DataType{"DateTime", XSD + "dateTime"}
	Date     = DataType{"Date", XSD + "date"}
	Time     = DataType{"Time", XSD + "time"}
	Duration = DataType{"Duration", XSD + "duration"}
	String   = DataType{"String", XSD + "string"}
	AnyURI   = DataType{"AnyURI", XSD + "anyURI"}

	// Text is natural language text with an optional language tag
	Text = DataType{"Text", Namespace + "text"}
	// Reference is a URI pointing to another entity or resource
	Reference = DataType{"Reference", Namespace + "reference"}
)

var catalog = []DataType{
	Boolean, Byte, Short, Int, Long, Integer, Decimal, Float, Double,
	DateTime, Date, Time, Duration, String, AnyURI, Text, Reference,
}

var (
	byName = make(map[string]DataType, len(catalog))
	byURI  = make(map[string]DataType, len(catalog))
)

func init() {
	for _, d := range catalog {
		byName[strings.ToLower(d.Name)] = d
		byURI[d.URI] = d
	}
}

// All returns the catalog in declaration order
func All() []DataType {
	out := make([]DataType, len(catalog))
	copy(out, catalog)
	return out
}

// ByName looks a datatype up by short name, ignoring case
func ByName(name string) (DataType, bool) {
	d, ok := byName[strings.ToLower(name)]
	return d, ok
}

// ByURI looks a datatype up by its canonical URI
func ByURI(uri string) (DataType, bool) {
	d, ok := byURI[uri]
	return d, ok
}

// Resolve accepts a short name ("Boolean"), a prefixed XSD name ("xsd:boolean")
// or a full URI and returns the datatype URI it denotes. URIs outside the
// catalog are returned unchanged.
func Resolve(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	if d, ok := ByName(s); ok {
		return d.URI, true
	}
	if local, ok := strings.CutPrefix(s, "xsd:"); ok {
		return XSD + local, true
	}
	if strings.Contains(s, ":") {
		return s, true
	}
	return "", false
}

// IsNumeric reports whether uri is one of the numeric catalog datatypes
func IsNumeric(uri string) bool {
	switch uri {
	case Byte.URI, Short.URI, Int.URI, Long.URI, Integer.URI, Decimal.URI, Float.URI, Double.URI:
		return true
	}
	return false
}

// NumericURIs lists the URIs for which IsNumeric holds
func NumericURIs() []string {
	return []string{Byte.URI, Short.URI, Int.URI, Long.URI, Integer.URI, Decimal.URI, Float.URI, Double.URI}
}
