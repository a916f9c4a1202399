package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cyp0633/schedsync/callback"
	"github.com/cyp0633/schedsync/connector"
	"github.com/cyp0633/schedsync/store"
	"github.com/cyp0633/schedsync/syncerr"
	"github.com/go-chi/chi/v5"
)

type calendarsResponse struct {
	IntegrationID int64                      `json:"integration_id"`
	Service       string                     `json:"service"`
	Calendars     []connector.CalendarResult `json:"calendars"`
}

// handleCalendars refreshes the integration's token when it has expired
// and returns the provider's calendar list.
func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid integration id", http.StatusBadRequest)
		return
	}

	calendars, service, err := s.listCalendars(r.Context(), id)
	if err != nil {
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logError(r, "failed to list calendars", err)
		}
		http.Error(w, message, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(calendarsResponse{
		IntegrationID: id,
		Service:       service.String(),
		Calendars:     calendars,
	}); err != nil {
		s.logError(r, "failed to encode calendars", err)
	}
}

// listCalendars reports integrations of other apps as not found.
func (s *Server) listCalendars(ctx context.Context, integrationID int64) ([]connector.CalendarResult, store.ServiceType, error) {
	in, err := s.orchestrator.Store.GetIntegration(ctx, integrationID)
	if err != nil {
		return nil, 0, err
	}
	g, err := s.orchestrator.Store.GetGroup(ctx, in.GroupID)
	if err != nil {
		return nil, 0, err
	}
	if g.AppID != appFromContext(ctx).ID {
		return nil, 0, store.NotFound("integration")
	}
	return s.orchestrator.Calendars(ctx, integrationID)
}

func statusFor(err error) (int, string) {
	switch {
	case store.IsNotFound(err):
		return http.StatusNotFound, "Integration not found"
	case errors.Is(err, callback.ErrUnknownService):
		return http.StatusBadRequest, "Integration does not use OAuth2"
	case errors.Is(err, syncerr.ErrInvalidStatus), errors.Is(err, syncerr.ErrNetwork), errors.Is(err, syncerr.ErrParse):
		return http.StatusBadGateway, "Provider request failed"
	default:
		return http.StatusInternalServerError, "Failed to list calendars"
	}
}
