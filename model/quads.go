package model

import (
	"iter"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/google/uuid"

	"github.com/teranos/entityhub/datatype"
	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/value"
)

// MarkerPredicate is the predicate of the fact every stored entity carries.
// Its presence is what makes a subject a Representation of a yard.
const MarkerPredicate = "urn:entityhub:yard:managedRepresentation"

// MarkerQuad returns the marker fact of id
func MarkerQuad(id string) quad.Quad {
	return quad.Quad{
		Subject:   quad.IRI(id),
		Predicate: quad.IRI(MarkerPredicate),
		Object:    quad.TypedString{Value: "true", Type: quad.IRI(datatype.Boolean.URI)},
	}
}

// blankScope derives the label prefix of blank nodes owned by id. Two
// entities never share a blank node because their scopes differ.
func blankScope(id string) string {
	u := uuid.NewSHA1(uuid.NameSpaceURL, []byte(id))
	return "b" + strings.ReplaceAll(u.String(), "-", "")[:16] + "_"
}

// scoped relabels a blank node into id's scope. Already scoped labels are
// kept, so relabelling is idempotent.
func scoped(id string, v quad.Value) quad.Value {
	b, ok := v.(quad.BNode)
	if !ok {
		return v
	}
	scope := blankScope(id)
	if strings.HasPrefix(string(b), scope) {
		return b
	}
	return quad.BNode(scope + string(b))
}

// NewBlankNode returns a fresh blank node owned by the entity
func (r *Representation) NewBlankNode() value.Resource {
	label := blankScope(r.id) + strings.ReplaceAll(uuid.NewString(), "-", "")
	return value.Resource{Term: quad.BNode(label)}
}

// AddNodeFact adds a fact about a blank node owned by the entity, e.g. the
// parts of a structured address referenced from a field.
func (r *Representation) AddNodeFact(node value.Resource, predicate string, v any) error {
	if !value.IsBlank(node) {
		return errors.NewInvalidArgumentError("node facts need a blank node subject, got %v", node.Term)
	}
	if err := checkField(predicate); err != nil {
		return err
	}
	for _, val := range r.toValues(v) {
		q := quad.Quad{Subject: node.Term, Predicate: quad.IRI(predicate), Object: value.ToQuad(val)}
		if !containsQuad(r.nodes, q) {
			r.nodes = append(r.nodes, q)
		}
	}
	return nil
}

// NodeFacts returns predicate and value of every fact about node
func (r *Representation) NodeFacts(node value.Resource) iter.Seq2[string, value.Value] {
	return func(yield func(string, value.Value) bool) {
		for _, q := range r.nodes {
			if !sameTerm(q.Subject, node.Term) {
				continue
			}
			if !yield(iriString(q.Predicate), value.FromQuad(q.Object)) {
				return
			}
		}
	}
}

// Quads renders the entity as facts: one per field value plus the facts of
// owned blank nodes, relabelled into the entity's scope. Node facts are only
// rendered while their node is reachable from a field value. The marker fact
// is not included.
func (r *Representation) Quads() []quad.Quad {
	subject := quad.IRI(r.id)
	var out []quad.Quad
	reached := make(map[string]bool)
	for _, field := range r.order {
		for _, v := range r.fields[field] {
			object := scoped(r.id, value.ToQuad(v))
			if b, ok := object.(quad.BNode); ok {
				reached[string(b)] = true
			}
			out = append(out, quad.Quad{
				Subject:   subject,
				Predicate: quad.IRI(field),
				Object:    object,
			})
		}
	}
	return append(out, r.reachableNodeFacts(reached)...)
}

// reachableNodeFacts returns the scoped node facts whose subject is reached
// from the labels in reached, following blank objects transitively
func (r *Representation) reachableNodeFacts(reached map[string]bool) []quad.Quad {
	facts := make([]quad.Quad, len(r.nodes))
	for i, q := range r.nodes {
		facts[i] = quad.Quad{
			Subject:   scoped(r.id, q.Subject),
			Predicate: q.Predicate,
			Object:    scoped(r.id, q.Object),
		}
	}
	for grew := true; grew; {
		grew = false
		for _, q := range facts {
			if !reached[blankLabel(q.Subject)] {
				continue
			}
			if b, ok := q.Object.(quad.BNode); ok && !reached[string(b)] {
				reached[string(b)] = true
				grew = true
			}
		}
	}
	var out []quad.Quad
	for _, q := range facts {
		if reached[blankLabel(q.Subject)] {
			out = append(out, q)
		}
	}
	return out
}

func blankLabel(v quad.Value) string {
	if b, ok := v.(quad.BNode); ok {
		return string(b)
	}
	return ""
}

func sameTerm(a, b quad.Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

func containsQuad(quads []quad.Quad, q quad.Quad) bool {
	for _, existing := range quads {
		if sameTerm(existing.Subject, q.Subject) && sameTerm(existing.Predicate, q.Predicate) && sameTerm(existing.Object, q.Object) {
			return true
		}
	}
	return false
}

func iriString(v quad.Value) string {
	if iri, ok := v.(quad.IRI); ok {
		return string(iri)
	}
	return quad.StringOf(v)
}
