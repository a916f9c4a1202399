package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/schedsync/callback"
	"github.com/cyp0633/schedsync/config"
	"github.com/cyp0633/schedsync/connector"
	"github.com/cyp0633/schedsync/internal/appkey"
	"github.com/cyp0633/schedsync/store"
	"github.com/cyp0633/schedsync/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// provider fakes the token endpoint and the Google calendar list.
func provider(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","expires_in":3600}`)
	})
	mux.HandleFunc("/calendar/v3/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"id":"primary","summary":"Family","backgroundColor":"#16a765","foregroundColor":"#000000"}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, opts ...Option) (*Server, store.Store) {
	t.Helper()
	p := provider(t)

	cfg := config.Default()
	for _, o := range []*config.OAuth2{&cfg.OAuth2.Google, &cfg.OAuth2.Outlook} {
		o.ClientID = "id"
		o.ClientSecret = "secret"
		o.RedirectURI = "https://app.test/callback"
		o.Scope = "calendar"
		o.TokenURL = p.URL + "/token"
	}

	s := memory.New()
	o := &callback.Orchestrator{
		Store:            s,
		Config:           cfg,
		Clock:            func() time.Time { return now },
		ConnectorOptions: []connector.Option{connector.WithGoogleEndpoint(p.URL + "/calendar/v3/")},
	}
	return New(o, opts...), s
}

func do(srv http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

type credentials struct {
	app *store.App
	key string
}

func issue(t *testing.T, s store.Store) credentials {
	t.Helper()
	app, key, err := appkey.Issue(context.Background(), s)
	require.NoError(t, err)
	return credentials{app: app, key: key}
}

func (c credentials) do(srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.SetBasicAuth(c.app.ClientID, c.key)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestAuthorize(t *testing.T) {
	srv, s := newTestServer(t)
	g := &store.Group{Name: "family"}
	require.NoError(t, s.CreateGroup(context.Background(), g))

	tests := []struct {
		name   string
		target string
		status int
	}{
		{name: "redirect", target: fmt.Sprintf("/oauth2/google?group_id=%d", g.ID), status: http.StatusTemporaryRedirect},
		{name: "unknown service", target: "/oauth2/apple?group_id=1", status: http.StatusNotFound},
		{name: "missing group id", target: "/oauth2/outlook", status: http.StatusBadRequest},
		{name: "unknown group", target: "/oauth2/outlook?group_id=999", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := do(srv, http.MethodGet, fmt.Sprintf("/oauth2/google?group_id=%d", g.ID))
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", loc.Host)
	assert.NotEmpty(t, loc.Query().Get("state"))
}

func TestCallback(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()
	g := &store.Group{}
	require.NoError(t, s.CreateGroup(ctx, g))
	for _, state := range []string{"good", "bad-code"} {
		require.NoError(t, s.CreateState(ctx, &store.OAuth2State{
			State: state, GroupID: g.ID, Service: store.ServiceGoogle, ExpiresAt: now.Add(time.Minute),
		}))
	}

	tests := []struct {
		name   string
		target string
		status int
		body   string
	}{
		{name: "created", target: "/oauth2/google/callback?state=good&code=c", status: http.StatusOK, body: "Integration created"},
		{name: "state consumed", target: "/oauth2/google/callback?state=good&code=c", status: http.StatusNotFound, body: "State not found"},
		{name: "exchange rejected", target: "/oauth2/google/callback?state=bad-code&code=bad", status: http.StatusInternalServerError},
		{name: "missing state", target: "/oauth2/google/callback?code=c", status: http.StatusBadRequest, body: "Missing state"},
		{name: "missing code", target: "/oauth2/google/callback?state=bad-code", status: http.StatusBadRequest, body: "Missing code"},
		{name: "denied", target: "/oauth2/google/callback?error=access_denied", status: http.StatusBadRequest},
		{name: "unknown service", target: "/oauth2/yahoo/callback?state=good&code=c", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.body != "" {
				assert.Equal(t, tt.body, strings.TrimSpace(rec.Body.String()))
			}
		})
	}
}

func seedIntegration(t *testing.T, s store.Store, appID int64, service store.ServiceType) int64 {
	t.Helper()
	ctx := context.Background()
	g := &store.Group{AppID: appID}
	require.NoError(t, s.CreateGroup(ctx, g))
	in := &store.Integration{GroupID: g.ID, Service: service, CreatedAt: now}
	require.NoError(t, s.CreateIntegration(ctx, in))
	require.NoError(t, s.CreateOAuthIntegration(ctx, &store.OAuthIntegration{
		IntegrationID: in.ID, Service: service, AccessToken: "old", RefreshToken: "rt", ExpiresAt: now.Add(-time.Minute),
	}))
	return in.ID
}

func TestCalendars(t *testing.T) {
	srv, s := newTestServer(t)
	c := issue(t, s)
	id := seedIntegration(t, s, c.app.ID, store.ServiceGoogle)

	rec := c.do(srv, http.MethodPost, fmt.Sprintf("/api/integrations/%d/calendars", id), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got calendarsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, calendarsResponse{
		IntegrationID: id,
		Service:       "google",
		Calendars: []connector.CalendarResult{{
			ExternalID: "primary", Name: "Family", BackgroundColor: "#16a765", ForegroundColor: "#000000",
		}},
	}, got)

	oi, err := s.GetOAuthIntegration(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "at", oi.AccessToken, "expired token should have been refreshed")
}

func TestCalendarsErrors(t *testing.T) {
	srv, s := newTestServer(t)
	c := issue(t, s)
	apple := seedIntegration(t, s, c.app.ID, store.ServiceApple)
	other := issue(t, s)
	foreign := seedIntegration(t, s, other.app.ID, store.ServiceGoogle)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{name: "invalid id", target: "/api/integrations/abc/calendars", status: http.StatusBadRequest},
		{name: "unknown integration", target: "/api/integrations/999/calendars", status: http.StatusNotFound},
		{name: "caldav integration", target: fmt.Sprintf("/api/integrations/%d/calendars", apple), status: http.StatusBadRequest},
		{name: "integration of another app", target: fmt.Sprintf("/api/integrations/%d/calendars", foreign), status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(srv, http.MethodPost, tt.target, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := c.do(srv, http.MethodGet, "/api/integrations/1/calendars", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPIAuth(t *testing.T) {
	srv, s := newTestServer(t)
	c := issue(t, s)
	other := issue(t, s)
	id := seedIntegration(t, s, c.app.ID, store.ServiceOutlook)
	target := fmt.Sprintf("/api/integrations/%d/calendars", id)

	rec := do(srv, http.MethodPost, target)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="schedsync"`, rec.Header().Get("WWW-Authenticate"))

	tests := []struct {
		name     string
		clientID string
		key      string
	}{
		{"wrong key", c.app.ClientID, "wrong"},
		{"unknown client", "nobody", c.key},
		{"key of another app", c.app.ClientID, other.key},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, target, nil)
			req.SetBasicAuth(tt.clientID, tt.key)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	rec = c.do(srv, http.MethodPost, target, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, "/oauth2/apple").Code, "oauth2 routes stay public")
}

func TestAPIAuthStoreFailure(t *testing.T) {
	m := new(store.MockStore)
	m.On("GetAppByClientID", mock.Anything, "c").Return(nil, errors.New("db down"))
	srv := New(&callback.Orchestrator{Store: m})

	req := httptest.NewRequest(http.MethodPost, "/api/group", nil)
	req.SetBasicAuth("c", "k")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	m.AssertExpectations(t)
}

func TestCreateGroup(t *testing.T) {
	srv, s := newTestServer(t)
	c := issue(t, s)

	rec := c.do(srv, http.MethodPost, "/api/group", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var g store.Group
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.NotZero(t, g.ID)
	assert.Equal(t, c.app.ID, g.AppID)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"app_id":%d}`, g.ID, c.app.ID), rec.Body.String())

	stored, err := s.GetGroup(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, c.app.ID, stored.AppID)

	rec = do(srv, http.MethodGet, fmt.Sprintf("/oauth2/google?group_id=%d", g.ID))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code, "new group can start the authorization flow")

	rec = c.do(srv, http.MethodPost, "/api/group", `{"name":"family"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.Equal(t, "family", g.Name)

	rec = c.do(srv, http.MethodPost, "/api/group", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, do(srv, http.MethodPost, "/api/group").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(srv, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(srv, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "schedsync_http_requests_total")

	failing, _ := newTestServer(t, WithHealthCheck(func(context.Context) error { return errors.New("db down") }))
	assert.Equal(t, http.StatusServiceUnavailable, do(failing, http.MethodGet, "/healthz").Code)
}
