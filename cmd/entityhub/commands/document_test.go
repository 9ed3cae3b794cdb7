package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/entityhub/datatype"
	"github.com/teranos/entityhub/model"
	"github.com/teranos/entityhub/value"
)

const peopleYAML = `
- id: urn:ada
  fields:
    urn:name: {text: Ada Lovelace, lang: en}
    urn:age: 36
    urn:knows: [{ref: urn:babbage}]
    urn:born: {value: "1815-12-10", type: Date}
    urn:address: {node: home}
  nodes:
    home:
      urn:city: London
---
id: urn:babbage
fields:
  urn:name: Charles Babbage
`

func newFactory(t *testing.T) *model.Factory {
	return model.NewFactory(nil, zaptest.NewLogger(t).Sugar())
}

func applyDoc(t *testing.T, doc entityDoc) *model.Representation {
	t.Helper()
	r, err := newFactory(t).CreateRepresentation(doc.ID)
	require.NoError(t, err)
	require.NoError(t, doc.apply(r))
	return r
}

func TestReadEntityDocs(t *testing.T) {
	docs, err := readEntityDocs(strings.NewReader(peopleYAML))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "urn:ada", docs[0].ID)
	assert.Equal(t, "urn:babbage", docs[1].ID)

	ada := applyDoc(t, docs[0])

	name, ok := ada.First("urn:name")
	require.True(t, ok)
	assert.Equal(t, value.Text{Text: "Ada Lovelace", Lang: "en"}, name)

	age, ok := ada.First("urn:age")
	require.True(t, ok)
	assert.Equal(t, value.Literal{Value: "36", DataType: datatype.Long.URI}, age)

	born, ok := ada.First("urn:born")
	require.True(t, ok)
	assert.Equal(t, value.Literal{Value: "1815-12-10", DataType: datatype.Date.URI}, born)

	knows, ok := ada.FirstReference("urn:knows")
	require.True(t, ok)
	assert.Equal(t, value.Reference("urn:babbage"), knows)

	address, ok := ada.First("urn:address")
	require.True(t, ok)
	node, ok := address.(value.Resource)
	require.True(t, ok)
	require.True(t, value.IsBlank(node))

	facts := map[string]value.Value{}
	for predicate, v := range ada.NodeFacts(node) {
		facts[predicate] = v
	}
	assert.Equal(t, map[string]value.Value{"urn:city": value.Text{Text: "London"}}, facts)

	babbage := applyDoc(t, docs[1])
	name, ok = babbage.First("urn:name")
	require.True(t, ok)
	assert.Equal(t, value.Text{Text: "Charles Babbage"}, name)
}

func TestReadEntityDocsErrors(t *testing.T) {
	_, err := readEntityDocs(strings.NewReader("- id: [unclosed"))
	assert.Error(t, err)

	docs, err := readEntityDocs(strings.NewReader("id: urn:x\nfields:\n  urn:f: {type: NoSuchType, value: x}\n"))
	require.NoError(t, err)
	r, err := newFactory(t).CreateRepresentation("urn:x")
	require.NoError(t, err)
	assert.Error(t, docs[0].apply(r))

	docs, err = readEntityDocs(strings.NewReader("id: urn:x\nfields:\n  urn:f: {}\n"))
	require.NoError(t, err)
	assert.Error(t, docs[0].apply(r))
}

func TestEntityDocRoundTrip(t *testing.T) {
	r, err := newFactory(t).CreateRepresentation("urn:ada")
	require.NoError(t, err)
	require.NoError(t, r.AddNaturalText("urn:name", "Ada", "en", "de"))
	require.NoError(t, r.Add("urn:age", 36))
	require.NoError(t, r.Add("urn:active", true))
	require.NoError(t, r.AddReference("urn:knows", "urn:babbage"))
	require.NoError(t, r.Add("urn:custom", value.Literal{Value: "x", DataType: "urn:dt:custom"}))

	for _, format := range []string{"yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeEntityDocs(&buf, format, []entityDoc{newEntityDoc(r)}))

			// JSON is valid YAML
			docs, err := readEntityDocs(&buf)
			require.NoError(t, err)
			require.Len(t, docs, 1)
			assert.True(t, r.SameFields(applyDoc(t, docs[0])))
		})
	}
}

func TestNewEntityDocFollowsBlankNodes(t *testing.T) {
	r, err := newFactory(t).CreateRepresentation("urn:ada")
	require.NoError(t, err)
	home := r.NewBlankNode()
	require.NoError(t, r.Add("urn:address", home))
	require.NoError(t, r.AddNodeFact(home, "urn:city", "London"))

	doc := newEntityDoc(r)
	require.Len(t, doc.Fields["urn:address"], 1)
	label := doc.Fields["urn:address"][0].Node
	require.NotEmpty(t, label)
	require.Contains(t, doc.Nodes, label)
	assert.Equal(t, valueList{{Text: "London"}}, doc.Nodes[label]["urn:city"])
}

func TestWriteEntityDocsFormats(t *testing.T) {
	docs := []entityDoc{{ID: "urn:ada", Fields: map[string]valueList{"urn:name": {{Text: "Ada"}}}}}

	var buf bytes.Buffer
	require.NoError(t, writeEntityDocs(&buf, "toml", docs))
	assert.Contains(t, buf.String(), "[[entity]]")
	assert.Contains(t, buf.String(), "urn:ada")

	buf.Reset()
	require.NoError(t, writeEntityDocs(&buf, "yaml", docs))
	assert.Contains(t, buf.String(), "id: urn:ada")

	assert.Error(t, writeEntityDocs(&buf, "xml", docs))
}
