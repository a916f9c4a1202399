package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cyp0633/schedsync/store"
)

type createGroupRequest struct {
	Name string `json:"name"`
}

// handleCreateGroup creates a group owned by the calling app. The body is
// optional.
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	g := &store.Group{AppID: appFromContext(r.Context()).ID, Name: req.Name}
	if err := s.orchestrator.Store.CreateGroup(r.Context(), g); err != nil {
		s.logError(r, "failed to create group", err)
		http.Error(w, "Failed to create group", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(g); err != nil {
		s.logError(r, "failed to encode group", err)
	}
}
