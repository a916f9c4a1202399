package davclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
)

var (
	declRe    = regexp.MustCompile(`<\?xml[^>]*\?>`)
	betweenRe = regexp.MustCompile(`>\s+<`)
)

func normalizeXML(s string) string {
	s = declRe.ReplaceAllString(s, "")
	s = betweenRe.ReplaceAllString(s, "><")
	return strings.TrimSpace(s)
}

// recordedRequest is what the fake server saw.
type recordedRequest struct {
	Method string
	Path   string
	Depth  string
	User   string
	Body   string
}

// fakeDAV answers by method and path with canned multistatus documents.
type fakeDAV struct {
	t         *testing.T
	mu        sync.Mutex
	responses map[string]string // "METHOD /path" -> body
	status    int
	requests  []recordedRequest
}

func newFakeDAV(t *testing.T, responses map[string]string) (*fakeDAV, *httptest.Server) {
	f := &fakeDAV{t: t, responses: responses, status: http.StatusMultiStatus}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeDAV) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	user, _, _ := r.BasicAuth()

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Depth:  r.Header.Get("Depth"),
		User:   user,
		Body:   string(body),
	})
	status := f.status
	f.mu.Unlock()

	resp, ok := f.responses[r.Method+" "+r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp))
}

func (f *fakeDAV) lastRequest() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		f.t.Fatal("no request recorded")
	}
	return f.requests[len(f.requests)-1]
}

var testCreds = Credentials{Username: "alice", Password: "secret"}
