package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/cayleygraph/quad"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/entityhub/datatype"
	"github.com/teranos/entityhub/errors"
	"github.com/teranos/entityhub/model"
	"github.com/teranos/entityhub/value"
)

// entityDoc is the document form of a Representation read by put and
// printed by get and find.
//
//	- id: urn:ada
//	  fields:
//	    urn:name: {text: Ada Lovelace, lang: en}
//	    urn:born: {value: "1815-12-10", type: Date}
//	    urn:knows: [{ref: urn:babbage}]
//	    urn:age: 36
//	    urn:address: {node: home}
//	  nodes:
//	    home:
//	      urn:city: London
type entityDoc struct {
	ID     string                          `yaml:"id" json:"id" toml:"id"`
	Fields map[string]valueList            `yaml:"fields,omitempty" json:"fields,omitempty" toml:"fields,omitempty"`
	Nodes  map[string]map[string]valueList `yaml:"nodes,omitempty" json:"nodes,omitempty" toml:"nodes,omitempty"`
}

// valueList accepts a single value where a list is expected
type valueList []valueDoc

// valueDoc is one field value. A bare YAML scalar is coerced by its runtime
// type the way Representation.Add coerces Go values.
type valueDoc struct {
	Ref   string `yaml:"ref,omitempty" json:"ref,omitempty" toml:"ref,omitempty"`
	Text  string `yaml:"text,omitempty" json:"text,omitempty" toml:"text,omitempty"`
	Lang  string `yaml:"lang,omitempty" json:"lang,omitempty" toml:"lang,omitempty"`
	Value string `yaml:"value,omitempty" json:"value,omitempty" toml:"value,omitempty"`
	Type  string `yaml:"type,omitempty" json:"type,omitempty" toml:"type,omitempty"`
	Node  string `yaml:"node,omitempty" json:"node,omitempty" toml:"node,omitempty"`

	scalar any
}

func (l *valueList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var items []valueDoc
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var item valueDoc
	if err := node.Decode(&item); err != nil {
		return err
	}
	*l = valueList{item}
	return nil
}

func (d *valueDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&d.scalar)
	}
	type plain valueDoc
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*d = valueDoc(p)
	return nil
}

// value resolves the document value to what Representation.Add accepts.
// node returns the blank node bound to a label of the entity's nodes section.
func (d valueDoc) value(node func(label string) value.Resource) (any, error) {
	switch {
	case d.scalar != nil:
		return d.scalar, nil
	case d.Ref != "":
		return value.Reference(d.Ref), nil
	case d.Node != "":
		return node(d.Node), nil
	case d.Type != "":
		uri, ok := datatype.Resolve(d.Type)
		if !ok {
			return nil, errors.NewInvalidArgumentError("unknown datatype %q", d.Type)
		}
		switch uri {
		case datatype.Text.URI:
			return value.NewText(d.Value, d.Lang), nil
		case datatype.Reference.URI:
			return value.Reference(d.Value), nil
		}
		return value.Literal{Value: d.Value, DataType: uri}, nil
	case d.Text != "" || d.Lang != "":
		return value.NewText(d.Text, d.Lang), nil
	case d.Value != "":
		return value.Text{Text: d.Value}, nil
	}
	return nil, errors.NewInvalidArgumentError("value has neither ref, node, text nor value")
}

// apply adds the document's fields and node facts to r
func (doc entityDoc) apply(r *model.Representation) error {
	nodes := make(map[string]value.Resource)
	node := func(label string) value.Resource {
		n, ok := nodes[label]
		if !ok {
			n = r.NewBlankNode()
			nodes[label] = n
		}
		return n
	}

	for _, field := range sortedKeys(doc.Fields) {
		for _, vd := range doc.Fields[field] {
			v, err := vd.value(node)
			if err != nil {
				return errors.Wrapf(err, "entity %s field %s", doc.ID, field)
			}
			if err := r.Add(field, v); err != nil {
				return err
			}
		}
	}

	for _, label := range sortedKeys(doc.Nodes) {
		subject := node(label)
		facts := doc.Nodes[label]
		for _, predicate := range sortedKeys(facts) {
			for _, vd := range facts[predicate] {
				v, err := vd.value(node)
				if err != nil {
					return errors.Wrapf(err, "entity %s node %s predicate %s", doc.ID, label, predicate)
				}
				if err := r.AddNodeFact(subject, predicate, v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// newEntityDoc renders r as a document, following blank nodes into the
// nodes section
func newEntityDoc(r *model.Representation) entityDoc {
	doc := entityDoc{ID: r.ID(), Fields: make(map[string]valueList)}
	var pending []value.Resource
	seen := make(map[string]bool)

	render := func(v value.Value) valueDoc {
		d, res, ok := docOf(v)
		if ok && !seen[d.Node] {
			seen[d.Node] = true
			pending = append(pending, res)
		}
		return d
	}

	for _, field := range r.SortedFieldNames() {
		for v := range r.Values(field) {
			doc.Fields[field] = append(doc.Fields[field], render(v))
		}
	}

	for len(pending) > 0 {
		res := pending[0]
		pending = pending[1:]
		label := blankLabel(res)
		facts := make(map[string]valueList)
		for predicate, v := range r.NodeFacts(res) {
			facts[predicate] = append(facts[predicate], render(v))
		}
		if doc.Nodes == nil {
			doc.Nodes = make(map[string]map[string]valueList)
		}
		doc.Nodes[label] = facts
	}
	return doc
}

// docOf renders one value; blank nodes are also returned as Resource
func docOf(v value.Value) (valueDoc, value.Resource, bool) {
	switch vv := v.(type) {
	case value.Reference:
		return valueDoc{Ref: string(vv)}, value.Resource{}, false
	case value.Text:
		return valueDoc{Text: vv.Text, Lang: vv.Lang}, value.Resource{}, false
	case value.Literal:
		typ := vv.DataType
		if dt, ok := datatype.ByURI(vv.DataType); ok {
			typ = dt.Name
		}
		return valueDoc{Value: vv.Value, Type: typ}, value.Resource{}, false
	case value.Resource:
		if value.IsBlank(vv) {
			return valueDoc{Node: blankLabel(vv)}, vv, true
		}
		return valueDoc{Value: vv.Lexical()}, value.Resource{}, false
	}
	return valueDoc{}, value.Resource{}, false
}

func blankLabel(r value.Resource) string {
	if b, ok := r.Term.(quad.BNode); ok {
		return string(b)
	}
	return r.Lexical()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// readEntityDocs reads a YAML stream. Each document holds one entity or a
// list of entities.
func readEntityDocs(r io.Reader) ([]entityDoc, error) {
	var docs []entityDoc
	dec := yaml.NewDecoder(r)
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if err == io.EOF {
				return docs, nil
			}
			return nil, errors.Wrap(err, "failed to parse entities")
		}
		if len(node.Content) == 0 {
			continue
		}
		root := node.Content[0]
		if root.Kind == yaml.SequenceNode {
			var batch []entityDoc
			if err := root.Decode(&batch); err != nil {
				return nil, errors.Wrap(err, "failed to parse entities")
			}
			docs = append(docs, batch...)
			continue
		}
		var doc entityDoc
		if err := root.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "failed to parse entity")
		}
		docs = append(docs, doc)
	}
}

// writeEntityDocs prints docs as yaml, json or toml
func writeEntityDocs(w io.Writer, format string, docs []entityDoc) error {
	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return fmt.Errorf("failed to marshal entities to YAML: %w", err)
		}
		return enc.Close()

	case "json":
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal entities to JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case "toml":
		data, err := toml.Marshal(struct {
			Entities []entityDoc `toml:"entity"`
		}{docs})
		if err != nil {
			return fmt.Errorf("failed to marshal entities to TOML: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unsupported format: %s (supported: yaml, json, toml)", format)
}
