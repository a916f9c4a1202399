package connector

import (
	"errors"
	"io"
	"net/http"

	"github.com/cyp0633/schedsync/syncerr"
)

// okOnlyTransport fails every provider response whose status is not 200
// with a *syncerr.StatusError, so 2xx variants are not mistaken for success.
type okOnlyTransport struct {
	next http.RoundTripper
}

func (t okOnlyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return nil, &syncerr.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

// statusError reports the StatusError anywhere in err's chain.
func statusError(err error) (*syncerr.StatusError, bool) {
	var se *syncerr.StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
