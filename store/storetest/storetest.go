// Package storetest runs the same behavioural checks against every
// store.Store implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/cyp0633/schedsync/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a fresh store returned by newStore in each subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("app", func(t *testing.T) { testApp(t, newStore(t)) })
	t.Run("group", func(t *testing.T) { testGroup(t, newStore(t)) })
	t.Run("integration", func(t *testing.T) { testIntegration(t, newStore(t)) })
	t.Run("oauth integration", func(t *testing.T) { testOAuthIntegration(t, newStore(t)) })
	t.Run("state", func(t *testing.T) { testState(t, newStore(t)) })
}

func testApp(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetAppByClientID(ctx, "nobody")
	assert.True(t, store.IsNotFound(err), "got %v", err)

	app := &store.App{ClientID: "client-1", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.CreateApp(ctx, app))
	assert.NotZero(t, app.ID)

	var se *store.Error
	err = s.CreateApp(ctx, &store.App{ClientID: "client-1"})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, store.ErrAlreadyExists, se.Type)

	got, err := s.GetAppByClientID(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
	assert.True(t, app.CreatedAt.Equal(got.CreatedAt))

	keys, err := s.ListAppKeys(ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, keys)

	for _, preview := range []string{"abcde...vwxyz", "12345...67890"} {
		require.NoError(t, s.CreateAppKey(ctx, &store.AppKey{AppID: app.ID, KeyHash: "hash-" + preview, KeyPreview: preview}))
	}
	keys, err = s.ListAppKeys(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "abcde...vwxyz", keys[0].KeyPreview)
	assert.Equal(t, "hash-12345...67890", keys[1].KeyHash)

	assert.Error(t, s.CreateAppKey(ctx, &store.AppKey{AppID: app.ID + 100, KeyHash: "h", KeyPreview: "p"}))
}

func testGroup(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetGroup(ctx, 42)
	assert.True(t, store.IsNotFound(err), "got %v", err)

	g := &store.Group{AppID: 7, Name: "family"}
	require.NoError(t, s.CreateGroup(ctx, g))
	assert.NotZero(t, g.ID)

	got, err := s.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g, got)
}

func testIntegration(t *testing.T, s store.Store) {
	ctx := context.Background()

	g := &store.Group{AppID: 1, Name: "g"}
	require.NoError(t, s.CreateGroup(ctx, g))

	in := &store.Integration{GroupID: g.ID, Service: store.ServiceGoogle, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.CreateIntegration(ctx, in))
	assert.NotZero(t, in.ID)

	got, err := s.GetIntegration(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.GroupID, got.GroupID)
	assert.Equal(t, store.ServiceGoogle, got.Service)
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt))

	_, err = s.GetIntegration(ctx, in.ID+100)
	assert.True(t, store.IsNotFound(err), "got %v", err)
}

func testOAuthIntegration(t *testing.T, s store.Store) {
	ctx := context.Background()

	g := &store.Group{AppID: 1, Name: "g"}
	require.NoError(t, s.CreateGroup(ctx, g))
	in := &store.Integration{GroupID: g.ID, Service: store.ServiceOutlook, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateIntegration(ctx, in))

	expires := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	oi := &store.OAuthIntegration{
		IntegrationID: in.ID,
		Service:       store.ServiceOutlook,
		AccessToken:   "access",
		RefreshToken:  "refresh",
		ExpiresAt:     expires,
	}
	require.NoError(t, s.CreateOAuthIntegration(ctx, oi))
	assert.NotZero(t, oi.ID)

	got, err := s.GetOAuthIntegration(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.True(t, expires.Equal(got.ExpiresAt))

	got.AccessToken = "rotated"
	got.ExpiresAt = expires.Add(time.Hour)
	require.NoError(t, s.SaveOAuthIntegration(ctx, got))

	again, err := s.GetOAuthIntegration(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated", again.AccessToken)
	assert.True(t, expires.Add(time.Hour).Equal(again.ExpiresAt))

	missing := &store.OAuthIntegration{IntegrationID: in.ID + 100}
	assert.True(t, store.IsNotFound(s.SaveOAuthIntegration(ctx, missing)))
}

func testState(t *testing.T, s store.Store) {
	ctx := context.Background()

	g := &store.Group{AppID: 1, Name: "g"}
	require.NoError(t, s.CreateGroup(ctx, g))

	st := &store.OAuth2State{
		State:     "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		GroupID:   g.ID,
		Service:   store.ServiceGoogle,
		ExpiresAt: time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateState(ctx, st))

	got, err := s.GetState(ctx, st.State)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.GroupID)
	assert.Equal(t, store.ServiceGoogle, got.Service)
	assert.True(t, st.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, s.DeleteState(ctx, st.State))
	_, err = s.GetState(ctx, st.State)
	assert.True(t, store.IsNotFound(err), "got %v", err)
}
