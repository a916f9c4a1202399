package xml

import (
	"github.com/beevik/etree"
	"github.com/samber/mo"
)

// Namespace definitions for CalDAV and WebDAV
const (
	// DAV is the WebDAV namespace
	DAV = "DAV:"
	// CalDAV is the CalDAV namespace
	CalDAV = "urn:ietf:params:xml:ns:caldav"
	// CalendarServer is the Calendar Server namespace (used by some implementations)
	CalendarServer = "http://calendarserver.org/ns/"
	// AppleICal is the Apple iCal namespace, home of calendar-color
	AppleICal = "http://apple.com/ns/ical/"
)

// Binding associates a prefix with a namespace URI.
type Binding struct {
	Prefix string
	URI    string
}

// DeclareNamespaces writes an xmlns:prefix attribute on elem for every binding.
func DeclareNamespaces(elem *etree.Element, bindings ...Binding) {
	for _, b := range bindings {
		elem.CreateAttr("xmlns:"+b.Prefix, b.URI)
	}
}

// NewElement creates a detached element written as prefix:tag.
func NewElement(prefix, tag string) *etree.Element {
	elem := etree.NewElement(tag)
	elem.Space = prefix
	return elem
}

// NewChild appends a prefix:tag element to parent and returns it.
func NewChild(parent *etree.Element, prefix, tag string) *etree.Element {
	elem := NewElement(prefix, tag)
	parent.AddChild(elem)
	return elem
}

// Child returns the first child of elem with the given local name, whatever its prefix.
func Child(elem *etree.Element, tag string) mo.Option[*etree.Element] {
	if elem == nil {
		return mo.None[*etree.Element]()
	}
	for _, c := range elem.ChildElements() {
		if c.Tag == tag {
			return mo.Some(c)
		}
	}
	return mo.None[*etree.Element]()
}

// Children returns every child of elem with the given local name, in document order.
func Children(elem *etree.Element, tag string) []*etree.Element {
	if elem == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range elem.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// ChildText returns the text of the first matching child. A present but empty
// element yields Some("").
func ChildText(elem *etree.Element, tag string) mo.Option[string] {
	c, ok := Child(elem, tag).Get()
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(c.Text())
}

// Path follows a chain of local names from elem, e.g. Path(prop, "current-user-principal", "href").
func Path(elem *etree.Element, tags ...string) mo.Option[*etree.Element] {
	cur := elem
	for _, tag := range tags {
		next, ok := Child(cur, tag).Get()
		if !ok {
			return mo.None[*etree.Element]()
		}
		cur = next
	}
	if cur == nil {
		return mo.None[*etree.Element]()
	}
	return mo.Some(cur)
}
