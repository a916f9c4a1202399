package davclient

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/schedsync/internal/xml"
	"github.com/samber/mo"
)

// StatusOK is the propstat status line of a successful property group.
const StatusOK = "HTTP/1.1 200 OK"

// Multistatus is a decoded d:multistatus document whose prop elements
// decode into P.
type Multistatus[P any, PP xml.DecoderPtr[P]] struct {
	Responses []Response[P]
}

// Response is one d:response element.
type Response[P any] struct {
	Href      string
	Propstats []Propstat[P]
}

// Propstat is one status and property group of a response.
type Propstat[P any] struct {
	Status string
	Prop   mo.Option[P]
}

// Decode implements xml.Decoder.
func (m *Multistatus[P, PP]) Decode(elem *etree.Element) error {
	if elem.Tag != xml.TagMultistatus {
		return fmt.Errorf("expected %s root, got %s", xml.TagMultistatus, elem.Tag)
	}
	for _, r := range xml.Children(elem, xml.TagResponse) {
		resp := Response[P]{
			Href: strings.TrimSpace(xml.ChildText(r, xml.TagHref).OrEmpty()),
		}
		for _, ps := range xml.Children(r, xml.TagPropstat) {
			stat := Propstat[P]{
				Status: strings.TrimSpace(xml.ChildText(ps, xml.TagStatus).OrEmpty()),
				Prop:   mo.None[P](),
			}
			if p, ok := xml.Child(ps, xml.TagProp).Get(); ok {
				var v P
				if err := PP(&v).Decode(p); err != nil {
					return fmt.Errorf("response %q: %w", resp.Href, err)
				}
				stat.Prop = mo.Some(v)
			}
			resp.Propstats = append(resp.Propstats, stat)
		}
		m.Responses = append(m.Responses, resp)
	}
	return nil
}

// OK returns the properties of the first propstat when its status is 200 OK.
// Later propstats typically carry 404 for unknown properties and are ignored.
func (r Response[P]) OK() (P, bool) {
	var zero P
	if len(r.Propstats) == 0 || r.Propstats[0].Status != StatusOK {
		return zero, false
	}
	return r.Propstats[0].Prop.Get()
}

func textOption(elem *etree.Element, tags ...string) mo.Option[string] {
	e, ok := xml.Path(elem, tags...).Get()
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(strings.TrimSpace(e.Text()))
}

type principalProps struct {
	CurrentUserPrincipal mo.Option[string]
}

func (p *principalProps) Decode(elem *etree.Element) error {
	p.CurrentUserPrincipal = textOption(elem, "current-user-principal", xml.TagHref)
	return nil
}

// ResourceType reports the resource-type markers of a collection.
type ResourceType struct {
	Collection bool
	Calendar   bool
}

type calendarProps struct {
	DisplayName  mo.Option[string]
	Description  mo.Option[string]
	Color        mo.Option[string]
	Source       mo.Option[string]
	Timezone     mo.Option[string]
	ResourceType ResourceType
	Privileges   []string
	Components   []string
}

func (p *calendarProps) Decode(elem *etree.Element) error {
	p.DisplayName = textOption(elem, "displayname")
	p.Description = textOption(elem, "description")
	p.Color = textOption(elem, "calendar-color")
	p.Source = textOption(elem, "source", xml.TagHref)
	p.Timezone = textOption(elem, "calendar-timezone")

	if rt, ok := xml.Child(elem, xml.TagResourcetype).Get(); ok {
		p.ResourceType.Collection = xml.Child(rt, xml.TagCollection).IsPresent()
		p.ResourceType.Calendar = xml.Child(rt, xml.TagCalendar).IsPresent()
	}

	if set, ok := xml.Child(elem, "current-user-privilege-set").Get(); ok {
		for _, priv := range xml.Children(set, "privilege") {
			for _, c := range priv.ChildElements() {
				p.Privileges = append(p.Privileges, c.Tag)
			}
		}
	}

	if set, ok := xml.Child(elem, "supported-calendar-component-set").Get(); ok {
		for _, comp := range xml.Children(set, xml.TagComp) {
			if name := comp.SelectAttrValue("name", ""); name != "" {
				p.Components = append(p.Components, name)
			}
		}
	}
	return nil
}

type eventProps struct {
	ETag         mo.Option[string]
	CalendarData mo.Option[string]
}

func (p *eventProps) Decode(elem *etree.Element) error {
	p.ETag = textOption(elem, "getetag")
	p.CalendarData = xml.ChildText(elem, xml.TagCalendarData)
	return nil
}
