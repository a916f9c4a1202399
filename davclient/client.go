// Package davclient discovers principals, calendars and events on a CalDAV
// server. Every operation authenticates on its own; the client keeps no
// session between calls.
package davclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/cyp0633/schedsync/internal/httpclient"
	"github.com/cyp0633/schedsync/internal/ics"
	"github.com/cyp0633/schedsync/internal/metrics"
)

// Credentials are the Basic Auth username and password sent with each request.
type Credentials = httpclient.Credentials

// HttpClientWrapper is the WebDAV transport the client sends through.
type HttpClientWrapper interface {
	DoPROPFIND(ctx context.Context, url string, depth int, body []byte, creds Credentials) ([]byte, error)
	DoREPORT(ctx context.Context, url string, depth int, body []byte, creds Credentials) ([]byte, error)
}

// Client talks CalDAV to one or more servers.
type Client struct {
	httpClient HttpClientWrapper
	extractor  *ics.Extractor
	logger     *slog.Logger
}

type options struct {
	transport  http.RoundTripper
	logger     *slog.Logger
	metrics    bool
	httpClient HttpClientWrapper
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the round tripper requests are sent through.
func WithHTTPClient(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithLogger sets the logger for request tracing and skipped calendar data.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics counts and times outbound requests under client="caldav".
func WithMetrics() Option {
	return func(o *options) { o.metrics = true }
}

// WithWrapper replaces the WebDAV transport entirely.
func WithWrapper(w HttpClientWrapper) Option {
	return func(o *options) { o.httpClient = w }
}

// New creates a Client.
func New(opts ...Option) *Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.httpClient == nil {
		rt := o.transport
		if o.metrics {
			rt = metrics.InstrumentTransport("caldav", rt)
		}
		o.httpClient = httpclient.New(rt, o.logger)
	}
	return &Client{
		httpClient: o.httpClient,
		extractor:  ics.NewExtractor(o.logger),
		logger:     o.logger,
	}
}
