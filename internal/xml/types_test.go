package xml

import (
	"errors"
	"testing"

	"github.com/beevik/etree"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// node is a small recursive shape: an attribute, a remapped text child and a
// heterogeneous list of children.
type node struct {
	Name     string
	Label    mo.Option[string]
	Children []node
}

func (n node) Encode() *etree.Element {
	elem := NewElement("t", "node")
	elem.CreateAttr("name", n.Name)
	if label, ok := n.Label.Get(); ok {
		NewChild(elem, "t", "display-label").SetText(label)
	}
	for _, c := range n.Children {
		elem.AddChild(c.Encode())
	}
	return elem
}

func (n *node) Decode(elem *etree.Element) error {
	if elem.Tag != "node" {
		return errors.New("unexpected root " + elem.Tag)
	}
	n.Name = elem.SelectAttrValue("name", "")
	n.Label = ChildText(elem, "display-label")
	for _, c := range Children(elem, "node") {
		var child node
		if err := child.Decode(c); err != nil {
			return err
		}
		n.Children = append(n.Children, child)
	}
	return nil
}

type nilEncoder struct{}

func (nilEncoder) Encode() *etree.Element { return nil }

func TestMarshal(t *testing.T) {
	tests := []struct {
		name string
		in   Encoder
		want string
	}{
		{
			name: "attribute only",
			in:   node{Name: "VCALENDAR"},
			want: `<t:node name="VCALENDAR"/>`,
		},
		{
			name: "remapped child and nested children",
			in: node{
				Name:  "root",
				Label: mo.Some("Work & Home"),
				Children: []node{
					{Name: "a"},
					{Name: "b", Children: []node{{Name: "c"}}},
				},
			},
			want: `<t:node name="root"><t:display-label>Work &amp; Home</t:display-label>` +
				`<t:node name="a"/><t:node name="b"><t:node name="c"/></t:node></t:node>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			require.NoError(t, err)
			assert.Contains(t, got, `<?xml version="1.0" encoding="utf-8"?>`)
			assert.Equal(t, normalizeXML(tt.want), normalizeXML(got))
		})
	}
}

func TestMarshalErrors(t *testing.T) {
	for _, in := range []Encoder{nil, nilEncoder{}} {
		_, err := Marshal(in)
		var serr *SerializationError
		require.ErrorAs(t, err, &serr)
		assert.ErrorIs(t, err, errNilElement)
	}
}

func TestUnmarshal(t *testing.T) {
	text := `<?xml version="1.0"?>
<x:node xmlns:x="urn:test" name="root">
  <x:node name="a"/>
  <y:node xmlns:y="urn:other" name="b"><x:display-label>B</x:display-label></y:node>
</x:node>`

	got, err := Unmarshal[node](text)
	require.NoError(t, err)

	want := node{
		Name:  "root",
		Label: mo.None[string](),
		Children: []node{
			{Name: "a", Label: mo.None[string]()},
			{Name: "b", Label: mo.Some("B")},
		},
	}
	assert.Equal(t, want, got)
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "truncated", text: `<node name="a">`},
		{name: "decoder rejects root", text: `<other/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal[node](tt.text)
			var derr *DeserializationError
			require.ErrorAs(t, err, &derr)
			assert.NotNil(t, derr.Unwrap())
		})
	}
}

func TestPathAndChild(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(
		`<d:prop xmlns:d="DAV:"><d:current-user-principal><d:href>/p/</d:href></d:current-user-principal><d:displayname/></d:prop>`))

	href, ok := Path(doc.Root(), "current-user-principal", "href").Get()
	require.True(t, ok)
	assert.Equal(t, "/p/", href.Text())

	assert.True(t, Path(doc.Root(), "current-user-principal", "missing").IsAbsent())
	assert.Equal(t, mo.Some(""), ChildText(doc.Root(), "displayname"))
	assert.True(t, ChildText(doc.Root(), "getetag").IsAbsent())
	assert.True(t, Child(nil, "x").IsAbsent())
	assert.Nil(t, Children(nil, "x"))
}

func TestDeclareNamespaces(t *testing.T) {
	root := NewElement("d", TagPropfind)
	DeclareNamespaces(root, Binding{"d", DAV}, Binding{"apple", AppleICal})

	assert.Equal(t, DAV, root.SelectAttrValue("xmlns:d", ""))
	assert.Equal(t, AppleICal, root.SelectAttrValue("xmlns:apple", ""))
	assert.Equal(t, "d", root.Space)
}
