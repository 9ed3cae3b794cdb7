package query

import "fmt"

// Kind identifies the constraint variant
type Kind int

const (
	KindValue Kind = iota
	KindReference
	KindText
	KindRange
	KindExists
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindReference:
		return "reference"
	case KindText:
		return "text"
	case KindRange:
		return "range"
	case KindExists:
		return "exists"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Constraint is one of ValueConstraint, ReferenceConstraint, TextConstraint,
// RangeConstraint and ExistsConstraint.
type Constraint interface {
	Kind() Kind
	isConstraint()
}

// Mode says whether any or all listed values must be present
type Mode int

const (
	ModeAny Mode = iota
	ModeAll
)

// ValueConstraint matches fields holding the listed values. Without
// DataTypes the datatype is derived from each value's Go type. Without
// Values, any value of the listed datatypes matches.
type ValueConstraint struct {
	Values    []any
	DataTypes []string
	Mode      Mode
}

// ReferenceConstraint matches fields referencing the listed URIs
type ReferenceConstraint struct {
	References []string
	Mode       Mode
}

// PatternType says how TextConstraint texts are matched
type PatternType int

const (
	// PatternNone matches texts as whole words
	PatternNone PatternType = iota
	// PatternWildcard matches words with * (any run) and ? (one character)
	PatternWildcard
	// PatternRegex matches texts as regular expressions
	PatternRegex
)

// TextConstraint matches text values. Texts are alternatives; Languages
// restricts the language tags ("" selects untagged text).
type TextConstraint struct {
	Texts         []string
	PatternType   PatternType
	CaseSensitive bool
	Languages     []string
}

// RangeConstraint matches values between Lower and Upper. A nil bound is
// open. Bounds must both be numbers, times or strings.
type RangeConstraint struct {
	Lower     any
	Upper     any
	Inclusive bool
}

// ExistsConstraint matches entities that have the field, or lack it when
// Negate is set.
type ExistsConstraint struct {
	Negate bool
}

func (ValueConstraint) Kind() Kind     { return KindValue }
func (ReferenceConstraint) Kind() Kind { return KindReference }
func (TextConstraint) Kind() Kind      { return KindText }
func (RangeConstraint) Kind() Kind     { return KindRange }
func (ExistsConstraint) Kind() Kind    { return KindExists }

func (ValueConstraint) isConstraint()     {}
func (ReferenceConstraint) isConstraint() {}
func (TextConstraint) isConstraint()      {}
func (RangeConstraint) isConstraint()     {}
func (ExistsConstraint) isConstraint()    {}

// Equals is a ValueConstraint matching any of values
func Equals(values ...any) ValueConstraint {
	return ValueConstraint{Values: values}
}

// References is a ReferenceConstraint matching any of uris
func References(uris ...string) ReferenceConstraint {
	return ReferenceConstraint{References: uris}
}

// Text is a case-insensitive whole-word TextConstraint
func Text(texts ...string) TextConstraint {
	return TextConstraint{Texts: texts}
}

// Exists matches entities having the field
func Exists() ExistsConstraint { return ExistsConstraint{} }

// Absent matches entities lacking the field
func Absent() ExistsConstraint { return ExistsConstraint{Negate: true} }
