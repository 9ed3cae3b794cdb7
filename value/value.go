// Package value defines the kinds of values a Representation field holds.
//
// Value is a closed sum type: Resource, Reference, Text and Literal are its
// only variants. Switch over them exhaustively instead of probing types.
package value

import (
	"strings"

	"github.com/cayleygraph/quad"
	"golang.org/x/text/language"

	"github.com/teranos/entityhub/datatype"
)

// Value is one value of a Representation field
type Value interface {
	// Lexical is the value's canonical string form
	Lexical() string
	isValue()
}

// Resource is an opaque graph node used verbatim, typically a blank node
// owned by the entity.
type Resource struct {
	Term quad.Value
}

// Reference is an absolute URI pointing to another entity or resource
type Reference string

// Text is a string with an optional language tag. Lang is empty for
// untagged text.
type Text struct {
	Text string
	Lang string
}

// Literal is a typed literal: a lexical form tagged with a datatype URI
type Literal struct {
	Value    string
	DataType string
}

func (Resource) isValue()  {}
func (Reference) isValue() {}
func (Text) isValue()      {}
func (Literal) isValue()   {}

func (r Resource) Lexical() string {
	if r.Term == nil {
		return ""
	}
	return quad.StringOf(r.Term)
}

func (r Reference) Lexical() string { return string(r) }
func (t Text) Lexical() string      { return t.Text }
func (l Literal) Lexical() string   { return l.Value }

// NewText creates a Text, canonicalizing the language tag ("EN-us" -> "en-US").
// Tags that do not parse are kept lower-cased.
func NewText(text, lang string) Text {
	return Text{Text: text, Lang: CanonicalLang(lang)}
}

// NewLiteral creates a typed literal for the given datatype
func NewLiteral(lexical string, dt datatype.DataType) Literal {
	return Literal{Value: lexical, DataType: dt.URI}
}

// CanonicalLang returns the canonical BCP 47 form of lang
func CanonicalLang(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return strings.ToLower(lang)
	}
	return tag.String()
}

// Equal compares two values structurally. Text compares (text, language);
// Literal compares (lexical, datatype).
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Resource:
		bv, ok := b.(Resource)
		return ok && termKey(av.Term) == termKey(bv.Term)
	case Reference:
		bv, ok := b.(Reference)
		return ok && av == bv
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case Literal:
		bv, ok := b.(Literal)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return false
}

func termKey(v quad.Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// Contains reports whether values holds a value equal to v
func Contains(values []Value, v Value) bool {
	for _, existing := range values {
		if Equal(existing, v) {
			return true
		}
	}
	return false
}

// DataTypeOf returns the datatype URI a value is tagged with. Text is
// reported as the Text datatype and references as Reference.
func DataTypeOf(v Value) string {
	switch vv := v.(type) {
	case Reference:
		return datatype.Reference.URI
	case Text:
		return datatype.Text.URI
	case Literal:
		return vv.DataType
	}
	return ""
}
