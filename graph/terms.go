package graph

import (
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/query"
)

// blankPrefix marks blank node labels in the subject and object columns
const blankPrefix = "_:"

// row is one triple in its column encoding
type row struct {
	subject   string
	predicate string
	object    string
	kind      int
	datatype  string
	lang      string
}

func encodeSubject(v quad.Value) (string, error) {
	switch vv := v.(type) {
	case quad.IRI:
		if vv == "" {
			return "", errors.NewInvalidArgumentError("empty subject")
		}
		return string(vv), nil
	case quad.BNode:
		return blankPrefix + string(vv), nil
	}
	return "", errors.NewInvalidArgumentError("subject %v is neither IRI nor blank node", v)
}

func encodeQuad(q quad.Quad) (row, error) {
	subject, err := encodeSubject(q.Subject)
	if err != nil {
		return row{}, err
	}
	predicate, ok := q.Predicate.(quad.IRI)
	if !ok || predicate == "" {
		return row{}, errors.NewInvalidArgumentError("predicate %v is not an IRI", q.Predicate)
	}
	r := row{subject: subject, predicate: string(predicate)}

	switch o := q.Object.(type) {
	case quad.IRI:
		r.object, r.kind = string(o), query.KindIRI
	case quad.BNode:
		r.object, r.kind = blankPrefix+string(o), query.KindBNode
	case quad.String:
		r.object, r.kind = string(o), query.KindLiteral
	case quad.LangString:
		r.object, r.kind, r.lang = string(o.Value), query.KindLiteral, o.Lang
	case quad.TypedString:
		r.object, r.kind, r.datatype = string(o.Value), query.KindLiteral, string(o.Type)
	case quad.TypedStringer:
		ts := o.TypedString()
		r.object, r.kind, r.datatype = string(ts.Value), query.KindLiteral, string(ts.Type.Full())
	case nil:
		return row{}, errors.NewInvalidArgumentError("fact %s %s has no object", subject, predicate)
	default:
		r.object, r.kind = quad.StringOf(o), query.KindLiteral
	}
	return r, nil
}

func decodeSubject(s string) quad.Value {
	if label, ok := strings.CutPrefix(s, blankPrefix); ok {
		return quad.BNode(label)
	}
	return quad.IRI(s)
}

func decodeObject(object string, kind int, dt, lang string) quad.Value {
	switch kind {
	case query.KindIRI:
		return quad.IRI(object)
	case query.KindBNode:
		return quad.BNode(strings.TrimPrefix(object, blankPrefix))
	}
	switch {
	case lang != "":
		return quad.LangString{Value: quad.String(object), Lang: lang}
	case dt != "":
		return quad.TypedString{Value: quad.String(object), Type: quad.IRI(dt)}
	}
	return quad.String(object)
}

func (r row) quad() quad.Quad {
	return quad.Quad{
		Subject:   decodeSubject(r.subject),
		Predicate: quad.IRI(r.predicate),
		Object:    decodeObject(r.object, r.kind, r.datatype, r.lang),
	}
}

func isBlank(subject string) bool {
	return strings.HasPrefix(subject, blankPrefix) && len(subject) > len(blankPrefix)
}
