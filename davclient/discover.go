package davclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/cyp0633/schedsync/internal/xml"
	"github.com/cyp0633/schedsync/syncerr"
)

// Principal is the authenticated user as the server identifies it.
type Principal struct {
	// UserID is the first segment of Path, e.g. "principals" for "/principals/alice/".
	UserID string
	Path   string
}

// Calendar is a calendar collection found under a principal.
type Calendar struct {
	ID           string
	Path         string
	DisplayName  string
	Description  string
	Color        string
	Source       string
	Timezone     string
	ResourceType ResourceType
	Privileges   []string
	Components   []string
}

// DiscoverPrincipal asks baseURL for the current user principal.
func (c *Client) DiscoverPrincipal(ctx context.Context, baseURL string, creds Credentials) (*Principal, error) {
	ms, err := propfind[principalProps](ctx, c, baseURL, -1, principalRequest(), creds)
	if err != nil {
		return nil, fmt.Errorf("discover principal: %w", err)
	}
	if len(ms.Responses) == 0 {
		return nil, fmt.Errorf("discover principal: %w", syncerr.ErrEmptyResponse)
	}

	first := ms.Responses[0]
	if len(first.Propstats) == 0 {
		return nil, fmt.Errorf("discover principal: %w", syncerr.Parse(fmt.Errorf("response %q has no propstat", first.Href)))
	}
	props, ok := first.Propstats[0].Prop.Get()
	if !ok {
		return nil, fmt.Errorf("discover principal: %w", syncerr.Parse(fmt.Errorf("response %q has no prop", first.Href)))
	}
	path, ok := props.CurrentUserPrincipal.Get()
	if !ok {
		return nil, fmt.Errorf("discover principal: %w", syncerr.Parse(fmt.Errorf("missing current-user-principal href")))
	}

	userID := firstSegment(path)
	if userID == "" {
		return nil, fmt.Errorf("discover principal: %w: %q", syncerr.ErrMalformedPrincipalPath, path)
	}

	c.logger.Debug("discovered principal", "user_id", userID, "path", path)
	return &Principal{UserID: userID, Path: path}, nil
}

// DiscoverCalendars lists the calendar collections under
// {baseURL}/{principal.UserID}/calendars. Responses whose first propstat is
// not 200 OK, and collections that are not calendars, are left out.
func (c *Client) DiscoverCalendars(ctx context.Context, principal *Principal, baseURL string, creds Credentials) ([]Calendar, error) {
	url := joinURL(baseURL, "/"+principal.UserID+"/calendars")
	ms, err := propfind[calendarProps](ctx, c, url, 1, calendarsRequest(), creds)
	if err != nil {
		return nil, fmt.Errorf("discover calendars: %w", err)
	}

	calendars := make([]Calendar, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		props, ok := r.OK()
		if !ok {
			c.logger.Debug("skipping response without 200 propstat", "href", r.Href)
			continue
		}
		if !props.ResourceType.Collection || !props.ResourceType.Calendar {
			continue
		}
		calendars = append(calendars, Calendar{
			ID:           lastSegment(r.Href),
			Path:         r.Href,
			DisplayName:  props.DisplayName.OrEmpty(),
			Description:  props.Description.OrEmpty(),
			Color:        props.Color.OrEmpty(),
			Source:       props.Source.OrEmpty(),
			Timezone:     props.Timezone.OrEmpty(),
			ResourceType: props.ResourceType,
			Privileges:   props.Privileges,
			Components:   props.Components,
		})
	}

	c.logger.Debug("discovered calendars", "url", url, "count", len(calendars))
	return calendars, nil
}

func propfind[P any, PP xml.DecoderPtr[P]](ctx context.Context, c *Client, url string, depth int, req Propfind, creds Credentials) (*Multistatus[P, PP], error) {
	body, err := xml.Marshal(req)
	if err != nil {
		return nil, err
	}
	data, err := c.httpClient.DoPROPFIND(ctx, url, depth, []byte(body), creds)
	if err != nil {
		return nil, err
	}
	ms, err := xml.Unmarshal[Multistatus[P, PP]](string(data))
	if err != nil {
		return nil, syncerr.Parse(err)
	}
	return &ms, nil
}

// firstSegment returns the first path segment after trimming slashes.
func firstSegment(path string) string {
	first, _, _ := strings.Cut(strings.Trim(path, "/"), "/")
	return first
}

// lastSegment returns the last non-empty path segment.
func lastSegment(path string) string {
	trimmed := strings.Trim(path, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// joinURL appends an absolute path to base. An href that is already a full
// URL is returned unchanged.
func joinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + path
}
