package httpclient

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	req *http.Request
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.req = req
	return &http.Response{
		StatusCode: http.StatusMultiStatus,
		Status:     "207 Multi-Status",
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("<ok/>")),
	}, nil
}

func TestBasicAuthTransport(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rec := &recordingTransport{}
	tr := NewBasicAuthTransport("alice", "secret", rec, logger)

	req, err := http.NewRequest(MethodPropfind, "http://example.test/", strings.NewReader("<q/>"))
	require.NoError(t, err)

	resp, err := tr.RoundTrip(req)
	require.NoError(t, err)

	user, pass, ok := rec.req.BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "secret", pass)

	_, _, ok = req.BasicAuth()
	assert.False(t, ok, "caller request must stay untouched")

	forwarded, _ := io.ReadAll(rec.req.Body)
	assert.Equal(t, "<q/>", string(forwarded))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "<ok/>", string(body), "response body must be restored after logging")

	assert.Contains(t, logs.String(), "outgoing request")
	assert.Contains(t, logs.String(), "incoming response")
}

func TestBasicAuthTransportRequiresUsername(t *testing.T) {
	tr := NewBasicAuthTransport("", "pw", &recordingTransport{}, nil)
	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	_, err := tr.RoundTrip(req)
	assert.Error(t, err)
}
