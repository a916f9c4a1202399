// Package connector implements the OAuth2 calendar providers behind one
// interface. A provider lacking a capability reports it with a typed error
// instead of pretending to succeed.
package connector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyp0633/schedsync/config"
	"github.com/cyp0633/schedsync/internal/metrics"
	"github.com/cyp0633/schedsync/store"
	"golang.org/x/oauth2"
)

// DefaultGoogleEndpoint is the Google Calendar API base path.
const DefaultGoogleEndpoint = "https://www.googleapis.com/calendar/v3/"

// CalendarResult is a provider-neutral calendar summary.
type CalendarResult struct {
	ExternalID      string `json:"external_id"`
	Name            string `json:"name"`
	BackgroundColor string `json:"background_color"`
	ForegroundColor string `json:"foreground_color"`
}

// Connector is the capability set of an OAuth2 calendar provider.
type Connector interface {
	// Config returns the provider's OAuth2 configuration.
	Config() config.OAuth2
	// Refresh exchanges the refresh token for a new access token, updates oi
	// in place, persists it through saver and returns it.
	Refresh(ctx context.Context, oi *store.OAuthIntegration, saver store.OAuthIntegrationSaver) (*store.OAuthIntegration, error)
	// Revoke invalidates the access token at the provider.
	Revoke(ctx context.Context, oi *store.OAuthIntegration) error
	// ListCalendars enumerates the calendars visible to the integration.
	ListCalendars(ctx context.Context, oi *store.OAuthIntegration) ([]CalendarResult, error)
	// Exchange trades an authorization code for a token set. The returned
	// record is not persisted and has no IntegrationID yet.
	Exchange(ctx context.Context, code string) (*store.OAuthIntegration, error)
}

type options struct {
	httpClient     *http.Client
	clock          func() time.Time
	logger         *slog.Logger
	googleEndpoint string
	metrics        bool
}

// Option configures a connector.
type Option func(*options)

// WithHTTPClient sets the client used for every provider call.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock sets the time source used to compute token expiry.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the logger for token and revocation events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGoogleEndpoint overrides the Google Calendar API base path.
func WithGoogleEndpoint(endpoint string) Option {
	return func(o *options) { o.googleEndpoint = endpoint }
}

// WithMetrics counts and times outbound requests under the provider name.
func WithMetrics() Option {
	return func(o *options) { o.metrics = true }
}

// base implements the token endpoint calls shared by every provider.
type base struct {
	service    store.ServiceType
	cfg        config.OAuth2
	httpClient *http.Client
	clock      func() time.Time
	logger     *slog.Logger
	// exchangeOpts are added to the authorization code exchange.
	exchangeOpts []oauth2.AuthCodeOption
}

func (b *base) Config() config.OAuth2 { return b.cfg }

// New returns the connector for service.
func New(service store.ServiceType, cfg config.OAuth2, opts ...Option) (Connector, error) {
	o := options{googleEndpoint: DefaultGoogleEndpoint}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := *o.httpClient
	if o.metrics {
		c.Transport = metrics.InstrumentTransport(service.String(), c.Transport)
	}
	c.Transport = okOnlyTransport{next: c.Transport}
	o.httpClient = &c
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	b := base{
		service:    service,
		cfg:        cfg,
		httpClient: o.httpClient,
		clock:      o.clock,
		logger:     o.logger.With("service", service.String()),
	}
	switch service {
	case store.ServiceGoogle:
		b.exchangeOpts = []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
		return &Google{base: b, endpoint: o.googleEndpoint}, nil
	case store.ServiceOutlook:
		return &Outlook{base: b}, nil
	default:
		return nil, fmt.Errorf("no oauth2 connector for %s", service)
	}
}
