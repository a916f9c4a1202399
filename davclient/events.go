package davclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cyp0633/schedsync/internal/ics"
	"github.com/cyp0633/schedsync/internal/xml"
	"github.com/cyp0633/schedsync/syncerr"
)

// CalendarEvents is one calendar object resource returned by a calendar query.
type CalendarEvents struct {
	Href   string
	ETag   string
	Events []ics.CalendarEvent
	// Failed holds the events of this resource that lacked a required property.
	Failed error `json:"-"`
}

// ListEvents runs a VEVENT calendar-query against the calendar. Entries
// without a 200 OK propstat, an ETag or calendar data are dropped. When
// nothing survives the result is syncerr.ErrEmptyResultSet, which also
// covers a calendar that simply has no events.
func (c *Client) ListEvents(ctx context.Context, calendar Calendar, baseURL string, creds Credentials) ([]CalendarEvents, error) {
	url := joinURL(baseURL, calendar.Path)

	body, err := xml.Marshal(eventsRequest())
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	data, err := c.httpClient.DoREPORT(ctx, url, 1, []byte(body), creds)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	ms, err := xml.Unmarshal[Multistatus[eventProps, *eventProps]](string(data))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", syncerr.Parse(err))
	}

	var out []CalendarEvents
	for _, r := range ms.Responses {
		props, ok := r.OK()
		if !ok {
			continue
		}
		etag := props.ETag.OrEmpty()
		blob := props.CalendarData.OrEmpty()
		if etag == "" || strings.TrimSpace(blob) == "" {
			c.logger.Debug("dropping entry without etag or calendar data", "href", r.Href)
			continue
		}

		events, failed := ics.Events(c.extractor.Parse(blob))
		if failed != nil {
			c.logger.Warn("events with missing properties skipped", "href", r.Href, "error", failed)
		}
		out = append(out, CalendarEvents{
			Href:   r.Href,
			ETag:   etag,
			Events: events,
			Failed: failed,
		})
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("list events %s: %w", calendar.Path, syncerr.ErrEmptyResultSet)
	}
	c.logger.Debug("listed events", "url", url, "resources", len(out))
	return out, nil
}

// CalendarSync is one calendar and its event resources.
type CalendarSync struct {
	Calendar Calendar
	Events   []CalendarEvents
}

// SyncResult is the outcome of a full principal, calendars and events pass.
type SyncResult struct {
	Principal Principal
	Calendars []CalendarSync
}

// Sync runs DiscoverPrincipal, DiscoverCalendars and ListEvents in order. A
// calendar whose query yields syncerr.ErrEmptyResultSet is kept with no
// events; any other error stops the sync.
func (c *Client) Sync(ctx context.Context, baseURL string, creds Credentials) (*SyncResult, error) {
	principal, err := c.DiscoverPrincipal(ctx, baseURL, creds)
	if err != nil {
		return nil, err
	}
	calendars, err := c.DiscoverCalendars(ctx, principal, baseURL, creds)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Principal: *principal}
	for _, cal := range calendars {
		events, err := c.ListEvents(ctx, cal, baseURL, creds)
		if err != nil && !errors.Is(err, syncerr.ErrEmptyResultSet) {
			return nil, err
		}
		result.Calendars = append(result.Calendars, CalendarSync{Calendar: cal, Events: events})
	}
	return result, nil
}
