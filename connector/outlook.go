package connector

import (
	"context"

	"github.com/cyp0633/schedsync/store"
	"github.com/cyp0633/schedsync/syncerr"
)

// Outlook talks to the Microsoft identity platform. It can refresh tokens
// but neither revoke them nor list calendars yet.
type Outlook struct {
	base
}

// Revoke always fails: the consumers endpoint has no token revocation.
func (o *Outlook) Revoke(context.Context, *store.OAuthIntegration) error {
	return syncerr.ErrTokenRevocationUnsupported
}

// ListCalendars is not implemented for Outlook and returns no calendars.
// TODO: enumerate calendars through Microsoft Graph /me/calendars.
func (o *Outlook) ListCalendars(context.Context, *store.OAuthIntegration) ([]CalendarResult, error) {
	return []CalendarResult{}, nil
}
