// Package ics extracts flat VEVENT fields from calendar-data payloads.
package ics

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/cyp0633/schedsync/syncerr"
	"github.com/emersion/go-ical"
	"github.com/samber/mo"
)

// Property names understood by the extractor.
const (
	PropUID          = ical.PropUID
	PropCreated      = ical.PropCreated
	PropLastModified = ical.PropLastModified
	PropSummary      = ical.PropSummary
	PropDTStart      = ical.PropDateTimeStart
	PropDTEnd        = ical.PropDateTimeEnd
	PropOrganizer    = ical.PropOrganizer
	PropStatus       = ical.PropStatus
	PropRecurrenceID = ical.PropRecurrenceID
	PropRRule        = ical.PropRecurrenceRule
	PropLocation     = ical.PropLocation
	PropTransp       = ical.PropTransparency
	PropCategories   = ical.PropCategories
	PropAttach       = ical.PropAttach
	PropAttendee     = ical.PropAttendee
)

// EventProperties lists the VEVENT properties requested from servers, in request order.
var EventProperties = []string{
	PropUID, PropCreated, PropLastModified, PropSummary, PropDTStart, PropDTEnd,
	PropOrganizer, PropStatus, PropRecurrenceID, PropRRule, PropLocation,
	PropTransp, PropCategories, PropAttach, PropAttendee,
}

// CalendarEvent holds the fields of one VEVENT. Values are kept as they
// appear on the wire; see Start, End and Recurrence for typed access.
type CalendarEvent struct {
	UID          string
	Created      string
	Summary      string
	DTStart      string
	DTEnd        string
	LastModified mo.Option[string]
	Status       mo.Option[string]
	Organizer    mo.Option[string]
	RecurrenceID mo.Option[string]
	RRule        mo.Option[string]
	Location     mo.Option[string]
	Transp       mo.Option[string]
	Categories   mo.Option[string]
	Attach       mo.Option[string]
	Attendee     mo.Option[string]
}

// Extractor turns calendar-data blobs into events.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor returns an Extractor that reports skipped objects on logger.
// A nil logger discards them.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{logger: logger}
}

// Parse uses a discarding logger. See Extractor.Parse.
func Parse(blob string) []mo.Result[CalendarEvent] {
	return NewExtractor(nil).Parse(blob)
}

// Parse returns one result per VEVENT found in blob, in document order.
// A calendar object that fails to decode is logged and skipped; an event
// lacking a required property yields an error result.
func (x *Extractor) Parse(blob string) []mo.Result[CalendarEvent] {
	var results []mo.Result[CalendarEvent]
	for i, obj := range splitObjects(blob) {
		cal, err := ical.NewDecoder(strings.NewReader(obj)).Decode()
		if err != nil {
			x.logger.Warn("skipping malformed calendar object", "index", i, "error", err)
			continue
		}
		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			results = append(results, fromProps(flatten(comp.Props)))
		}
	}
	return results
}

// Events splits results into the successfully built events and the joined
// errors of the rest.
func Events(results []mo.Result[CalendarEvent]) ([]CalendarEvent, error) {
	var (
		events []CalendarEvent
		errs   []error
	)
	for _, r := range results {
		ev, err := r.Get()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, ev)
	}
	return events, errors.Join(errs...)
}

// flatten keeps the last value of every property name.
func flatten(props ical.Props) map[string]string {
	out := make(map[string]string, len(props))
	for name, list := range props {
		if len(list) == 0 {
			continue
		}
		out[name] = list[len(list)-1].Value
	}
	return out
}

func fromProps(m map[string]string) mo.Result[CalendarEvent] {
	var ev CalendarEvent
	required := []struct {
		name string
		dst  *string
	}{
		{PropUID, &ev.UID},
		{PropCreated, &ev.Created},
		{PropSummary, &ev.Summary},
		{PropDTStart, &ev.DTStart},
		{PropDTEnd, &ev.DTEnd},
	}
	for _, r := range required {
		v, ok := m[r.name]
		if !ok {
			return mo.Err[CalendarEvent](&syncerr.MissingPropertyError{Name: r.name})
		}
		*r.dst = v
	}

	opt := func(name string) mo.Option[string] {
		if v, ok := m[name]; ok {
			return mo.Some(v)
		}
		return mo.None[string]()
	}
	ev.LastModified = opt(PropLastModified)
	ev.Status = opt(PropStatus)
	ev.Organizer = opt(PropOrganizer)
	ev.RecurrenceID = opt(PropRecurrenceID)
	ev.RRule = opt(PropRRule)
	ev.Location = opt(PropLocation)
	ev.Transp = opt(PropTransp)
	ev.Categories = opt(PropCategories)
	ev.Attach = opt(PropAttach)
	ev.Attendee = opt(PropAttendee)
	return mo.Ok(ev)
}

// splitObjects cuts blob into BEGIN:VCALENDAR ... END:VCALENDAR chunks.
// Text outside any chunk is ignored, and an unterminated chunk is kept so
// the decoder can reject it. Lines have no length limit.
func splitObjects(blob string) []string {
	var (
		objs  []string
		cur   strings.Builder
		depth int
	)
	for rest := blob; rest != ""; {
		var raw string
		raw, rest, _ = strings.Cut(rest, "\n")
		line := strings.TrimRight(raw, "\r")
		upper := strings.ToUpper(line)
		switch {
		case upper == "BEGIN:VCALENDAR":
			if depth > 0 {
				objs = append(objs, cur.String())
				cur.Reset()
			}
			depth = 1
		case depth == 0:
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\r\n")
		if upper == "END:VCALENDAR" {
			objs = append(objs, cur.String())
			cur.Reset()
			depth = 0
		}
	}
	if depth > 0 {
		objs = append(objs, cur.String())
	}
	return objs
}
