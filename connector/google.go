package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cyp0633/schedsync/store"
	"github.com/cyp0633/schedsync/syncerr"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Google talks to the Google OAuth2 and Calendar APIs.
type Google struct {
	base
	endpoint string
}

// Revoke posts the access token as a query parameter and the client
// credentials as a form. Only 200 counts as success.
func (g *Google) Revoke(ctx context.Context, oi *store.OAuthIntegration) error {
	u, err := url.Parse(g.cfg.RevokeURL)
	if err != nil {
		return fmt.Errorf("parse revoke url: %w", err)
	}
	q := u.Query()
	q.Set("token", oi.AccessToken)
	u.RawQuery = q.Encode()

	form := url.Values{
		"client_id":     {g.cfg.ClientID},
		"client_secret": {g.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if se, ok := statusError(err); ok {
			return se
		}
		return syncerr.Network(err)
	}
	resp.Body.Close()

	g.logger.InfoContext(ctx, "revoked access token", "integration_id", oi.IntegrationID)
	return nil
}

// ListCalendars follows nextPageToken until the last page. A failure on any
// page discards what was collected.
func (g *Google) ListCalendars(ctx context.Context, oi *store.OAuthIntegration) ([]CalendarResult, error) {
	srv, err := g.service(ctx, oi)
	if err != nil {
		return nil, err
	}

	var items []*calendar.CalendarListEntry
	pageToken := ""
	for {
		call := srv.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, googleError(err)
		}
		items = append(items, page.Items...)
		g.logger.DebugContext(ctx, "fetched calendar list page",
			"items", len(page.Items),
			"more", page.NextPageToken != "")
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	results := make([]CalendarResult, 0, len(items))
	for _, item := range items {
		results = append(results, CalendarResult{
			ExternalID:      item.Id,
			Name:            item.Summary,
			BackgroundColor: item.BackgroundColor,
			ForegroundColor: item.ForegroundColor,
		})
	}
	return results, nil
}

func (g *Google) service(ctx context.Context, oi *store.OAuthIntegration) (*calendar.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: oi.AccessToken, TokenType: "Bearer"})
	client := &http.Client{
		Transport: &oauth2.Transport{Source: ts, Base: g.httpClient.Transport},
		Timeout:   g.httpClient.Timeout,
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(g.endpoint))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return srv, nil
}

func googleError(err error) error {
	if se, ok := statusError(err); ok {
		return se
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return &syncerr.StatusError{StatusCode: ge.Code, Body: ge.Body}
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return syncerr.Network(err)
	}
	return syncerr.Parse(err)
}
