package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cyp0633/schedsync/callback"
	"github.com/cyp0633/schedsync/store"
	"github.com/go-chi/chi/v5"
)

// handleAuthorize redirects to the provider's consent page.
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	service, err := callback.ParseService(chi.URLParam(r, "service"))
	if err != nil {
		http.Error(w, "Service not found", http.StatusNotFound)
		return
	}
	groupID, err := strconv.ParseInt(r.URL.Query().Get("group_id"), 10, 64)
	if err != nil {
		http.Error(w, "Missing or invalid group_id", http.StatusBadRequest)
		return
	}

	target, err := s.orchestrator.AuthorizationURL(r.Context(), service, groupID)
	switch {
	case store.IsNotFound(err):
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	case err != nil:
		s.logError(r, "failed to start authorization", err)
		http.Error(w, "Failed to start authorization", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// handleCallback completes the flow the provider redirected back from.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	service, err := callback.ParseService(chi.URLParam(r, "service"))
	if err != nil {
		http.Error(w, "Service not found", http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		http.Error(w, "Authorization denied: "+e, http.StatusBadRequest)
		return
	}
	state := q.Get("state")
	if state == "" {
		http.Error(w, "Missing state", http.StatusBadRequest)
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	_, err = s.orchestrator.HandleCallback(r.Context(), service, state, code)
	switch {
	case errors.Is(err, callback.ErrStateNotFound):
		http.Error(w, "State not found", http.StatusNotFound)
		return
	case err != nil:
		s.logError(r, "failed to create integration", err)
		http.Error(w, "Failed to create integration", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Integration created"))
}
