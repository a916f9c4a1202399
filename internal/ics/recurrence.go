package ics

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

var dateLayouts = []string{
	"20060102T150405Z",
	"20060102T150405",
	"20060102",
}

// ParseTime parses an ICS DATE or DATE-TIME value. Floating and date-only
// values are interpreted in loc; a nil loc means UTC.
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if strings.HasSuffix(layout, "Z") {
			if t, err := time.Parse(layout, value); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date value %q", value)
}

// Start parses DTSTART.
func (e CalendarEvent) Start(loc *time.Location) (time.Time, error) {
	return ParseTime(e.DTStart, loc)
}

// End parses DTEND.
func (e CalendarEvent) End(loc *time.Location) (time.Time, error) {
	return ParseTime(e.DTEnd, loc)
}

// Recurrence builds the rule set anchored at DTSTART, or None for a
// non-recurring event.
func (e CalendarEvent) Recurrence(loc *time.Location) (mo.Option[*rrule.Set], error) {
	rule, ok := e.RRule.Get()
	if !ok {
		return mo.None[*rrule.Set](), nil
	}
	start, err := e.Start(loc)
	if err != nil {
		return mo.None[*rrule.Set](), err
	}

	opt, err := rrule.StrToROptionInLocation(rule, start.Location())
	if err != nil {
		return mo.None[*rrule.Set](), fmt.Errorf("failed to parse RRULE %q: %w", rule, err)
	}
	// Occurrences follow the wall clock of DTSTART's location across DST.
	opt.Dtstart = start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return mo.None[*rrule.Set](), fmt.Errorf("failed to build RRULE %q: %w", rule, err)
	}
	set := &rrule.Set{}
	set.RRule(r)
	return mo.Some(set), nil
}

// Occurrences returns the start times of the event inside [from, to]. A
// non-recurring event yields its own start when it falls inside the range.
func (e CalendarEvent) Occurrences(from, to time.Time, loc *time.Location) ([]time.Time, error) {
	set, err := e.Recurrence(loc)
	if err != nil {
		return nil, err
	}
	if s, ok := set.Get(); ok {
		return s.Between(from, to, true), nil
	}

	start, err := e.Start(loc)
	if err != nil {
		return nil, err
	}
	if start.Before(from) || start.After(to) {
		return nil, nil
	}
	return []time.Time{start}, nil
}
