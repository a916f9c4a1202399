// Package callback drives the OAuth2 authorization code flow: it issues the
// state for the provider redirect and turns the provider's callback into a
// persisted integration.
package callback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyp0633/schedsync/config"
	"github.com/cyp0633/schedsync/connector"
	"github.com/cyp0633/schedsync/store"
	"github.com/cyp0633/schedsync/syncerr"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// StateTTL is how long an authorization request stays valid.
const StateTTL = 5 * time.Minute

var (
	// ErrUnknownService is returned for a provider without an OAuth2 flow.
	ErrUnknownService = errors.New("unknown oauth2 service")
	// ErrStateNotFound is returned when the callback state is unknown,
	// expired or issued for another provider.
	ErrStateNotFound = errors.New("oauth2 state not found")
)

// ParseService accepts the providers that authorize through OAuth2.
func ParseService(name string) (store.ServiceType, error) {
	s, err := store.ParseServiceType(name)
	if err != nil || (s != store.ServiceGoogle && s != store.ServiceOutlook) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
	return s, nil
}

// Orchestrator holds the collaborators of the authorization flow. Only
// Store and Config are required.
type Orchestrator struct {
	Store      store.Store
	Config     *config.Config
	HTTPClient *http.Client
	Clock      func() time.Time
	Logger     *slog.Logger
	// ConnectorOptions are applied after the ones derived from the fields
	// above.
	ConnectorOptions []connector.Option
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (o *Orchestrator) providerConfig(service store.ServiceType) (config.OAuth2, error) {
	switch service {
	case store.ServiceGoogle:
		return o.Config.OAuth2.Google, nil
	case store.ServiceOutlook:
		return o.Config.OAuth2.Outlook, nil
	}
	return config.OAuth2{}, fmt.Errorf("%w: %s", ErrUnknownService, service)
}

// Connector builds the connector for service with the orchestrator's
// client, clock and logger.
func (o *Orchestrator) Connector(service store.ServiceType) (connector.Connector, error) {
	cfg, err := o.providerConfig(service)
	if err != nil {
		return nil, err
	}
	opts := []connector.Option{
		connector.WithClock(o.now),
		connector.WithLogger(o.logger()),
		connector.WithMetrics(),
	}
	if o.HTTPClient != nil {
		opts = append(opts, connector.WithHTTPClient(o.HTTPClient))
	}
	opts = append(opts, o.ConnectorOptions...)
	return connector.New(service, cfg, opts...)
}

// AuthorizationURL records a new state for groupID and returns the provider
// URL the user is redirected to. Offline access and the consent prompt are
// always requested so the provider issues a refresh token.
func (o *Orchestrator) AuthorizationURL(ctx context.Context, service store.ServiceType, groupID int64) (string, error) {
	cfg, err := o.providerConfig(service)
	if err != nil {
		return "", err
	}
	if _, err := o.Store.GetGroup(ctx, groupID); err != nil {
		return "", fmt.Errorf("get group %d: %w", groupID, err)
	}

	st := &store.OAuth2State{
		State:     uuid.NewString(),
		GroupID:   groupID,
		Service:   service,
		ExpiresAt: o.now().Add(StateTTL),
	}
	if err := o.Store.CreateState(ctx, st); err != nil {
		return "", fmt.Errorf("%w: create state: %w", syncerr.ErrPersistence, err)
	}

	return cfg.Client().AuthCodeURL(st.State, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// HandleCallback exchanges code for tokens and persists the integration of
// the group that requested state. The state is consumed on success.
func (o *Orchestrator) HandleCallback(ctx context.Context, service store.ServiceType, state, code string) (*store.OAuthIntegration, error) {
	log := o.logger().With("service", service.String())

	st, err := o.Store.GetState(ctx, state)
	if store.IsNotFound(err) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get state: %w", syncerr.ErrPersistence, err)
	}
	if st.Expired(o.now()) {
		if err := o.Store.DeleteState(ctx, state); err != nil {
			log.WarnContext(ctx, "failed to delete expired state", "error", err)
		}
		return nil, ErrStateNotFound
	}
	if st.Service != service {
		return nil, ErrStateNotFound
	}

	conn, err := o.Connector(service)
	if err != nil {
		return nil, err
	}
	oi, err := conn.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	in := &store.Integration{GroupID: st.GroupID, Service: service, CreatedAt: o.now()}
	if err := o.Store.CreateIntegration(ctx, in); err != nil {
		return nil, fmt.Errorf("%w: create integration: %w", syncerr.ErrPersistence, err)
	}
	oi.IntegrationID = in.ID
	if err := o.Store.CreateOAuthIntegration(ctx, oi); err != nil {
		return nil, fmt.Errorf("%w: create oauth integration: %w", syncerr.ErrPersistence, err)
	}
	if err := o.Store.DeleteState(ctx, state); err != nil {
		log.WarnContext(ctx, "failed to delete used state", "error", err)
	}

	log.InfoContext(ctx, "integration created",
		"group_id", st.GroupID,
		"integration_id", in.ID)
	return oi, nil
}

// Calendars lists the calendars of an OAuth2 integration, refreshing its
// access token first when it has expired.
func (o *Orchestrator) Calendars(ctx context.Context, integrationID int64) ([]connector.CalendarResult, store.ServiceType, error) {
	in, err := o.Store.GetIntegration(ctx, integrationID)
	if err != nil {
		return nil, 0, fmt.Errorf("get integration %d: %w", integrationID, err)
	}
	conn, err := o.Connector(in.Service)
	if err != nil {
		return nil, in.Service, err
	}
	oi, err := o.Store.GetOAuthIntegration(ctx, integrationID)
	if err != nil {
		return nil, in.Service, fmt.Errorf("get oauth integration %d: %w", integrationID, err)
	}

	if oi.Expired(o.now()) {
		if oi, err = conn.Refresh(ctx, oi, o.Store); err != nil {
			return nil, in.Service, fmt.Errorf("refresh token: %w", err)
		}
	}

	calendars, err := conn.ListCalendars(ctx, oi)
	if err != nil {
		return nil, in.Service, fmt.Errorf("list calendars: %w", err)
	}
	return calendars, in.Service, nil
}
