package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyp0633/schedsync/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoREPORT(t *testing.T) {
	tests := []struct {
		name          string
		serverHandler func(w http.ResponseWriter, r *http.Request)
		wantErr       error
		wantBody      string
	}{
		{
			name: "successful request",
			serverHandler: func(w http.ResponseWriter, r *http.Request) {
				if r.Method != MethodReport {
					t.Errorf("expected REPORT method, got %s", r.Method)
				}
				if depth := r.Header.Get("Depth"); depth != "1" {
					t.Errorf("expected Depth 1, got %s", depth)
				}
				w.WriteHeader(http.StatusMultiStatus)
				_, _ = w.Write([]byte(`<D:multistatus xmlns:D="DAV:"/>`))
			},
			wantBody: `<D:multistatus xmlns:D="DAV:"/>`,
		},
		{
			name: "server error",
			serverHandler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: syncerr.ErrInvalidStatus,
		},
		{
			name: "not found",
			serverHandler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			wantErr: syncerr.ErrInvalidStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverHandler))
			defer server.Close()

			c := New(nil, nil)
			got, err := c.DoREPORT(context.Background(), server.URL+"/calendars/alice/work/", 1, []byte("<q/>"), Credentials{"alice", "pw"})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, string(got))
		})
	}
}
