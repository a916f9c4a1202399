package davclient

import (
	"github.com/beevik/etree"
	"github.com/cyp0633/schedsync/internal/ics"
	"github.com/cyp0633/schedsync/internal/xml"
)

// PropName names a property requested in a PROPFIND, written as prefix:name.
type PropName struct {
	Prefix string
	Name   string
}

// Propfind is a d:propfind request body.
type Propfind struct {
	Namespaces []xml.Binding
	Props      []PropName
}

// Encode implements xml.Encoder.
func (p Propfind) Encode() *etree.Element {
	root := xml.NewElement("d", xml.TagPropfind)
	xml.DeclareNamespaces(root, p.Namespaces...)
	prop := xml.NewChild(root, "d", xml.TagProp)
	for _, n := range p.Props {
		xml.NewChild(prop, n.Prefix, n.Name)
	}
	return root
}

// Node is an element of a calendar-data request tree: a Component or a Property.
type Node interface {
	xml.Encoder
	isNode()
}

// Component is a c:comp element selecting a component and, through its
// children, the parts of it to return.
type Component struct {
	Name     string
	Children []Node
}

// Property is a c:prop element selecting one property of its component.
type Property struct {
	Name string
}

func (Component) isNode() {}
func (Property) isNode()  {}

// Encode implements xml.Encoder.
func (c Component) Encode() *etree.Element {
	elem := xml.NewElement("c", xml.TagComp)
	elem.CreateAttr("name", c.Name)
	for _, child := range c.Children {
		elem.AddChild(child.Encode())
	}
	return elem
}

// Encode implements xml.Encoder.
func (p Property) Encode() *etree.Element {
	elem := xml.NewElement("c", xml.TagProp)
	elem.CreateAttr("name", p.Name)
	return elem
}

// CompFilter is a c:comp-filter element, nested to select a component path.
type CompFilter struct {
	Name    string
	Filters []CompFilter
}

// Encode implements xml.Encoder.
func (f CompFilter) Encode() *etree.Element {
	elem := xml.NewElement("c", xml.TagCompFilter)
	elem.CreateAttr("name", f.Name)
	for _, sub := range f.Filters {
		elem.AddChild(sub.Encode())
	}
	return elem
}

// CalendarQuery is a c:calendar-query REPORT body returning ETags and the
// calendar data selected by Data.
type CalendarQuery struct {
	Data   Component
	Filter CompFilter
}

// Encode implements xml.Encoder.
func (q CalendarQuery) Encode() *etree.Element {
	root := xml.NewElement("c", xml.TagCalendarQuery)
	xml.DeclareNamespaces(root,
		xml.Binding{Prefix: "c", URI: xml.CalDAV},
		xml.Binding{Prefix: "d", URI: xml.DAV},
	)

	prop := xml.NewChild(root, "d", xml.TagProp)
	xml.NewChild(prop, "d", "getetag")
	xml.NewChild(prop, "c", xml.TagCalendarData).AddChild(q.Data.Encode())

	xml.NewChild(root, "c", xml.TagFilter).AddChild(q.Filter.Encode())
	return root
}

var discoveryNamespaces = []xml.Binding{
	{Prefix: "d", URI: xml.DAV},
	{Prefix: "cal", URI: xml.CalDAV},
	{Prefix: "cs", URI: xml.CalendarServer},
	{Prefix: "apple", URI: xml.AppleICal},
}

func principalRequest() Propfind {
	return Propfind{
		Namespaces: discoveryNamespaces,
		Props:      []PropName{{"d", "current-user-principal"}},
	}
}

func calendarsRequest() Propfind {
	return Propfind{
		Namespaces: discoveryNamespaces,
		Props: []PropName{
			{"d", "current-user-privilege-set"},
			{"d", "displayname"},
			{"d", "description"},
			{"d", xml.TagResourcetype},
			{"cs", "source"},
			{"apple", "calendar-color"},
			{"cal", "supported-calendar-component-set"},
			{"cal", "calendar-timezone"},
		},
	}
}

func eventsRequest() CalendarQuery {
	props := make([]Node, 0, len(ics.EventProperties))
	for _, name := range ics.EventProperties {
		props = append(props, Property{Name: name})
	}
	return CalendarQuery{
		Data: Component{
			Name: "VCALENDAR",
			Children: []Node{
				Property{Name: "VERSION"},
				Component{Name: "VEVENT", Children: props},
			},
		},
		Filter: CompFilter{
			Name:    "VCALENDAR",
			Filters: []CompFilter{{Name: "VEVENT"}},
		},
	}
}
