package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/cyp0633/schedsync/internal/appkey"
	"github.com/cyp0633/schedsync/store"
)

type appCtxKey struct{}

// appAuth authenticates the request with an app's client id and key sent
// as Basic Auth and stores the app in the request context.
func (s *Server) appAuth(realm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID, key, ok := r.BasicAuth()
			if !ok {
				requestAuth(w, realm)
				return
			}
			app, err := appkey.Verify(r.Context(), s.orchestrator.Store, clientID, key)
			if errors.Is(err, appkey.ErrInvalidCredentials) {
				requestAuth(w, realm)
				return
			}
			if err != nil {
				s.logError(r, "failed to verify app credentials", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), appCtxKey{}, app)))
		})
	}
}

// appFromContext returns the app set by appAuth.
func appFromContext(ctx context.Context) *store.App {
	app, _ := ctx.Value(appCtxKey{}).(*store.App)
	return app
}

// requestAuth sends the WWW-Authenticate challenge.
func requestAuth(w http.ResponseWriter, realm string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
