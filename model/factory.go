package model

import (
	"github.com/cayleygraph/quad"
	"go.uber.org/zap"

	"github.com/teranos/entityhub/convert"
	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/logger"
	"github.com/teranos/entityhub/value"
)

// Factory creates Representations and values bound to one converter
// registry.
type Factory struct {
	registry *convert.Registry
	logger   *zap.SugaredLogger
}

// NewFactory returns a Factory using registry; nil uses a read-only default
// registry.
func NewFactory(registry *convert.Registry, log *zap.SugaredLogger) *Factory {
	if registry == nil {
		registry = convert.NewDefaultRegistry()
	}
	return &Factory{registry: registry, logger: logger.OrNop(log)}
}

// Registry returns the converter registry of created Representations
func (f *Factory) Registry() *convert.Registry { return f.registry }

// CreateRepresentation returns an empty Representation for id
func (f *Factory) CreateRepresentation(id string) (*Representation, error) {
	if id == "" {
		return nil, errors.NewInvalidArgumentError("representation id must not be empty")
	}
	return newRepresentation(id, f.registry, f.logger), nil
}

// CreateReference validates uri as an absolute URI
func (f *Factory) CreateReference(uri string) (value.Reference, error) {
	if uri == "" {
		return "", errors.NewInvalidArgumentError("reference must not be empty")
	}
	ref, ok := convert.ParseReference(uri)
	if !ok {
		return "", errors.NewInvalidArgumentError("reference %q is not an absolute URI", uri)
	}
	return ref, nil
}

// CreateText returns text tagged with lang; an empty lang leaves it untagged
func (f *Factory) CreateText(text, lang string) value.Text {
	return value.NewText(text, lang)
}

// FromQuads rebuilds the Representation of id from its stored facts. Facts
// about id become fields, facts about blank nodes are kept as node facts and
// the marker fact is dropped.
func (f *Factory) FromQuads(id string, quads []quad.Quad) (*Representation, error) {
	r, err := f.CreateRepresentation(id)
	if err != nil {
		return nil, err
	}
	for _, q := range quads {
		predicate := iriString(q.Predicate)
		switch subject := q.Subject.(type) {
		case quad.IRI:
			if string(subject) != id {
				f.logger.Debugw("Skipping fact of another subject",
					logger.FieldEntityID, id, "subject", string(subject))
				continue
			}
			if predicate == MarkerPredicate {
				continue
			}
			r.appendValues(predicate, []value.Value{value.FromQuad(q.Object)})
		case quad.BNode:
			nq := quad.Quad{Subject: subject, Predicate: quad.IRI(predicate), Object: q.Object}
			if !containsQuad(r.nodes, nq) {
				r.nodes = append(r.nodes, nq)
			}
		}
	}
	return r, nil
}
