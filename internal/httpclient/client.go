// Package httpclient sends WebDAV requests with per-call Basic Auth.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cyp0633/schedsync/syncerr"
)

// Credentials are sent with every request as Basic Auth.
type Credentials struct {
	Username string
	Password string
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client performs WebDAV requests. It holds no session state: every call
// builds an http.Client around its own credentials.
type Client struct {
	transport http.RoundTripper
	logger    *slog.Logger
}

// New returns a Client sending through transport. A nil transport means
// http.DefaultTransport, a nil logger discards.
func New(transport http.RoundTripper, logger *slog.Logger) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{transport: transport, logger: logger}
}

// Do sends method to url with the given Depth header and XML body.
// A negative depth omits the header. Transport failures are reported as
// syncerr.ErrNetwork; the status code is left for the caller to judge.
func (c *Client) Do(ctx context.Context, method, url string, depth int, body []byte, creds Credentials) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	if depth >= 0 {
		req.Header.Set("Depth", strconv.Itoa(depth))
	}

	hc := &http.Client{
		Transport: NewBasicAuthTransport(creds.Username, creds.Password, c.transport, c.logger),
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, syncerr.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, syncerr.Network(err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// expectMultiStatus returns a StatusError unless resp is 207.
func expectMultiStatus(resp *Response) error {
	if resp.StatusCode != http.StatusMultiStatus {
		return &syncerr.StatusError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return nil
}
