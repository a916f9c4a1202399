package davclient

import (
	"context"
	"fmt"
	"testing"

	"github.com/cyp0633/schedsync/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const standupICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
UID:standup
CREATED:20240101T080000Z
SUMMARY:Standup
DTSTART:20240105T090000Z
DTEND:20240105T091500Z
RRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR
END:VEVENT
BEGIN:VEVENT
UID:no-end
CREATED:20240101T080000Z
SUMMARY:Broken
DTSTART:20240105T090000Z
END:VEVENT
END:VCALENDAR
`

const lunchICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
UID:lunch
CREATED:20240101T080000Z
SUMMARY:Lunch &amp; learn
DTSTART:20240106T120000Z
DTEND:20240106T130000Z
LOCATION:Cafeteria
END:VEVENT
END:VCALENDAR
`

func eventEntry(href, status, props string) string {
	return fmt.Sprintf(`<d:response><d:href>%s</d:href><d:propstat><d:prop>%s</d:prop><d:status>%s</d:status></d:propstat></d:response>`,
		href, props, status)
}

func multistatus(entries ...string) string {
	out := `<?xml version="1.0" encoding="utf-8"?><d:multistatus xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">`
	for _, e := range entries {
		out += e
	}
	return out + `</d:multistatus>`
}

var workCalendar = Calendar{ID: "work", Path: "/alice/calendars/work/"}

func TestListEvents(t *testing.T) {
	body := multistatus(
		eventEntry("/alice/calendars/work/standup.ics", StatusOK,
			`<d:getetag>"e1"</d:getetag><c:calendar-data>`+standupICS+`</c:calendar-data>`),
		eventEntry("/alice/calendars/work/no-etag.ics", StatusOK,
			`<c:calendar-data>`+lunchICS+`</c:calendar-data>`),
		eventEntry("/alice/calendars/work/no-data.ics", StatusOK,
			`<d:getetag>"e3"</d:getetag>`),
		eventEntry("/alice/calendars/work/gone.ics", "HTTP/1.1 404 Not Found",
			`<d:getetag>"e4"</d:getetag><c:calendar-data>`+lunchICS+`</c:calendar-data>`),
		eventEntry("/alice/calendars/work/lunch.ics", StatusOK,
			`<d:getetag>"e5"</d:getetag><c:calendar-data>`+lunchICS+`</c:calendar-data>`),
	)
	fake, srv := newFakeDAV(t, map[string]string{"REPORT /alice/calendars/work/": body})

	got, err := New().ListEvents(context.Background(), workCalendar, srv.URL, testCreds)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "/alice/calendars/work/standup.ics", got[0].Href)
	assert.Equal(t, `"e1"`, got[0].ETag)
	require.Len(t, got[0].Events, 1)
	assert.Equal(t, "standup", got[0].Events[0].UID)
	assert.ErrorIs(t, got[0].Failed, syncerr.ErrMissingRequiredProperty)

	assert.Equal(t, `"e5"`, got[1].ETag)
	require.Len(t, got[1].Events, 1)
	assert.Equal(t, "Lunch & learn", got[1].Events[0].Summary)
	assert.Equal(t, "Cafeteria", got[1].Events[0].Location.OrEmpty())
	assert.NoError(t, got[1].Failed)

	req := fake.lastRequest()
	assert.Equal(t, "REPORT", req.Method)
	assert.Equal(t, "1", req.Depth)
	assert.Contains(t, req.Body, `<c:comp-filter name="VEVENT"/>`)
}

func TestListEventsEmptyResultSet(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "every propstat non-200",
			body: multistatus(
				eventEntry("/a.ics", "HTTP/1.1 404 Not Found", `<d:getetag>"1"</d:getetag><c:calendar-data>`+lunchICS+`</c:calendar-data>`),
				eventEntry("/b.ics", "HTTP/1.1 403 Forbidden", `<d:getetag>"2"</d:getetag>`),
			),
		},
		{
			name: "empty calendar",
			body: multistatus(),
		},
		{
			name: "entries lack etag or data",
			body: multistatus(
				eventEntry("/a.ics", StatusOK, `<c:calendar-data>`+lunchICS+`</c:calendar-data>`),
				eventEntry("/b.ics", StatusOK, `<d:getetag>"2"</d:getetag><c:calendar-data>  </c:calendar-data>`),
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeDAV(t, map[string]string{"REPORT /alice/calendars/work/": tt.body})

			got, err := New().ListEvents(context.Background(), workCalendar, srv.URL, testCreds)
			assert.ErrorIs(t, err, syncerr.ErrEmptyResultSet)
			assert.Nil(t, got)
		})
	}
}

func TestListEventsSkipsMalformedObjects(t *testing.T) {
	blob := "BEGIN:VCALENDAR\nnot a property\nEND:VCALENDAR\n" + lunchICS
	body := multistatus(eventEntry("/a.ics", StatusOK, `<d:getetag>"1"</d:getetag><c:calendar-data>`+blob+`</c:calendar-data>`))
	_, srv := newFakeDAV(t, map[string]string{"REPORT /alice/calendars/work/": body})

	got, err := New().ListEvents(context.Background(), workCalendar, srv.URL, testCreds)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Events, 1)
	assert.Equal(t, "lunch", got[0].Events[0].UID)
}

func TestSync(t *testing.T) {
	principal := multistatus(`<d:response><d:href>/</d:href><d:propstat><d:prop>` +
		`<d:current-user-principal><d:href>/alice/</d:href></d:current-user-principal>` +
		`</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`)
	calendars := multistatus(
		eventEntry("/alice/calendars/work/", StatusOK, `<d:resourcetype><d:collection/><c:calendar/></d:resourcetype>`),
		eventEntry("/alice/calendars/empty/", StatusOK, `<d:resourcetype><d:collection/><c:calendar/></d:resourcetype>`),
	)
	work := multistatus(eventEntry("/alice/calendars/work/lunch.ics", StatusOK,
		`<d:getetag>"e5"</d:getetag><c:calendar-data>`+lunchICS+`</c:calendar-data>`))

	fake, srv := newFakeDAV(t, map[string]string{
		"PROPFIND /":                     principal,
		"PROPFIND /alice/calendars":      calendars,
		"REPORT /alice/calendars/work/":  work,
		"REPORT /alice/calendars/empty/": multistatus(),
	})

	got, err := New().Sync(context.Background(), srv.URL, testCreds)
	require.NoError(t, err)

	assert.Equal(t, Principal{UserID: "alice", Path: "/alice/"}, got.Principal)
	require.Len(t, got.Calendars, 2)
	assert.Equal(t, "work", got.Calendars[0].Calendar.ID)
	require.Len(t, got.Calendars[0].Events, 1)
	assert.Equal(t, "empty", got.Calendars[1].Calendar.ID)
	assert.Empty(t, got.Calendars[1].Events)

	for _, r := range fake.requests {
		assert.Equal(t, "alice", r.User, "every call authenticates on its own")
	}
	assert.Len(t, fake.requests, 4)
}

func TestSyncStopsOnOtherErrors(t *testing.T) {
	principal := multistatus(`<d:response><d:href>/</d:href><d:propstat><d:prop>` +
		`<d:current-user-principal><d:href>/alice/</d:href></d:current-user-principal>` +
		`</d:prop><d:status>HTTP/1.1 200 OK</d:status></d:propstat></d:response>`)
	calendars := multistatus(
		eventEntry("/alice/calendars/work/", StatusOK, `<d:resourcetype><d:collection/><c:calendar/></d:resourcetype>`),
	)
	_, srv := newFakeDAV(t, map[string]string{
		"PROPFIND /":                principal,
		"PROPFIND /alice/calendars": calendars,
	})

	_, err := New().Sync(context.Background(), srv.URL, testCreds)
	assert.ErrorIs(t, err, syncerr.ErrInvalidStatus)
}
