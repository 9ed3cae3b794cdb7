package value

import (
	"github.com/cayleygraph/quad"

	"github.com/teranos/entityhub/datatype"
)

// ToQuad converts v to the RDF term stored in the graph
func ToQuad(v Value) quad.Value {
	switch vv := v.(type) {
	case Resource:
		return vv.Term
	case Reference:
		return quad.IRI(vv)
	case Text:
		if vv.Lang == "" {
			return quad.String(vv.Text)
		}
		return quad.LangString{Value: quad.String(vv.Text), Lang: vv.Lang}
	case Literal:
		if vv.DataType == "" {
			return quad.String(vv.Value)
		}
		return quad.TypedString{Value: quad.String(vv.Value), Type: quad.IRI(vv.DataType)}
	}
	return nil
}

// FromQuad converts an RDF term read from the graph into a Value.
// IRIs become References, blank nodes Resources, plain and language-tagged
// strings Text, and typed strings Literals.
func FromQuad(q quad.Value) Value {
	switch qv := q.(type) {
	case nil:
		return nil
	case quad.IRI:
		return Reference(qv)
	case quad.BNode:
		return Resource{Term: qv}
	case quad.String:
		return Text{Text: string(qv)}
	case quad.LangString:
		return NewText(string(qv.Value), qv.Lang)
	case quad.TypedString:
		return Literal{Value: string(qv.Value), DataType: string(qv.Type)}
	case quad.TypedStringer:
		ts := qv.TypedString()
		return Literal{Value: string(ts.Value), DataType: string(ts.Type.Full())}
	}
	return Text{Text: quad.StringOf(q)}
}

// IsBlank reports whether v is a Resource backed by a blank node
func IsBlank(v Value) bool {
	r, ok := v.(Resource)
	if !ok {
		return false
	}
	_, ok = r.Term.(quad.BNode)
	return ok
}

// StringLiteral reports whether v is a literal of the String datatype or an
// untagged Text; both carry a plain string.
func StringLiteral(v Value) (string, bool) {
	switch vv := v.(type) {
	case Text:
		if vv.Lang == "" {
			return vv.Text, true
		}
	case Literal:
		if vv.DataType == datatype.String.URI || vv.DataType == "" {
			return vv.Value, true
		}
	}
	return "", false
}
