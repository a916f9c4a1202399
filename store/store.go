// Package store holds the persisted records of the connector layer and the
// interfaces a storage backend implements. See store/memory and
// store/sqlstore for implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceType identifies a calendar provider. The values are persisted.
type ServiceType int

const (
	ServiceGoogle  ServiceType = 1
	ServiceOutlook ServiceType = 2
	ServiceApple   ServiceType = 3
)

func (s ServiceType) String() string {
	switch s {
	case ServiceGoogle:
		return "google"
	case ServiceOutlook:
		return "outlook"
	case ServiceApple:
		return "apple"
	default:
		return fmt.Sprintf("service(%d)", int(s))
	}
}

// ParseServiceType maps a lower-case provider name to its ServiceType.
func ParseServiceType(name string) (ServiceType, error) {
	switch strings.ToLower(name) {
	case "google":
		return ServiceGoogle, nil
	case "outlook":
		return ServiceOutlook, nil
	case "apple":
		return ServiceApple, nil
	}
	return 0, &Error{Type: ErrInvalidInput, Message: fmt.Sprintf("unknown service %q", name)}
}

// App is a client application of the API. Groups belong to apps.
type App struct {
	ID        int64
	ClientID  string
	CreatedAt time.Time
}

// AppKey is one API key of an App. Only the key's hash is stored;
// KeyPreview keeps its first and last characters for display.
type AppKey struct {
	ID         int64
	AppID      int64
	KeyHash    string
	KeyPreview string
	CreatedAt  time.Time
}

// Group owns integrations.
type Group struct {
	ID    int64  `json:"id"`
	AppID int64  `json:"app_id"`
	Name  string `json:"name,omitempty"`
}

// Integration links a group to one provider account.
type Integration struct {
	ID        int64
	GroupID   int64
	Service   ServiceType
	CreatedAt time.Time
}

// OAuthIntegration is the token set of an OAuth2 integration. ExpiresAt is
// the only record of whether AccessToken is still usable.
type OAuthIntegration struct {
	ID            int64
	IntegrationID int64
	Service       ServiceType
	AccessToken   string
	RefreshToken  string
	ExpiresAt     time.Time
}

// Expired reports whether the access token is no longer valid at now.
func (o *OAuthIntegration) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// OAuth2State is a pending authorization request.
type OAuth2State struct {
	ID        int64
	State     string
	GroupID   int64
	Service   ServiceType
	ExpiresAt time.Time
}

// Expired reports whether the state can no longer complete a callback at now.
func (s *OAuth2State) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// OAuthIntegrationSaver persists a refreshed token set.
type OAuthIntegrationSaver interface {
	SaveOAuthIntegration(ctx context.Context, oi *OAuthIntegration) error
}

// Store is implemented by storage backends. Lookups of missing records
// return an *Error of type ErrNotFound.
type Store interface {
	OAuthIntegrationSaver

	// CreateApp sets app.ID. A duplicate ClientID is ErrAlreadyExists.
	CreateApp(ctx context.Context, app *App) error
	GetAppByClientID(ctx context.Context, clientID string) (*App, error)
	CreateAppKey(ctx context.Context, key *AppKey) error
	ListAppKeys(ctx context.Context, appID int64) ([]*AppKey, error)

	CreateGroup(ctx context.Context, g *Group) error
	GetGroup(ctx context.Context, id int64) (*Group, error)

	CreateIntegration(ctx context.Context, in *Integration) error
	GetIntegration(ctx context.Context, id int64) (*Integration, error)

	// CreateOAuthIntegration sets oi.ID.
	CreateOAuthIntegration(ctx context.Context, oi *OAuthIntegration) error
	GetOAuthIntegration(ctx context.Context, integrationID int64) (*OAuthIntegration, error)

	CreateState(ctx context.Context, st *OAuth2State) error
	GetState(ctx context.Context, state string) (*OAuth2State, error)
	DeleteState(ctx context.Context, state string) error
}

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	ErrUnavailable   ErrorType = "unavailable"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a storage error of type ErrNotFound.
func IsNotFound(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == ErrNotFound
}

// NotFound returns an ErrNotFound error for the named record kind.
func NotFound(what string) error {
	return &Error{Type: ErrNotFound, Message: what + " not found"}
}
