// Package appkey issues and checks the client id and key pairs that
// applications use to call the /api endpoints.
package appkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/cyp0633/schedsync/store"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Verify when the client id is
// unknown or none of the app's keys match.
var ErrInvalidCredentials = errors.New("invalid app credentials")

// Issue creates a new app and a first key for it. The plaintext key is
// only available from the return value; the store keeps a bcrypt hash.
func Issue(ctx context.Context, s store.Store) (*store.App, string, error) {
	app := &store.App{ClientID: uuid.NewString()}
	if err := s.CreateApp(ctx, app); err != nil {
		return nil, "", fmt.Errorf("create app: %w", err)
	}
	key, err := AddKey(ctx, s, app.ID)
	if err != nil {
		return nil, "", err
	}
	return app, key, nil
}

// AddKey stores an additional key for appID and returns it in plaintext.
func AddKey(ctx context.Context, s store.Store, appID int64) (string, error) {
	key := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash app key: %w", err)
	}
	err = s.CreateAppKey(ctx, &store.AppKey{
		AppID:      appID,
		KeyHash:    string(hash),
		KeyPreview: Preview(key),
	})
	if err != nil {
		return "", fmt.Errorf("store app key: %w", err)
	}
	return key, nil
}

// Verify returns the app owning clientID if key matches one of its keys.
func Verify(ctx context.Context, s store.Store, clientID, key string) (*store.App, error) {
	app, err := s.GetAppByClientID(ctx, clientID)
	if store.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	keys, err := s.ListAppKeys(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(key)) == nil {
			return app, nil
		}
	}
	return nil, ErrInvalidCredentials
}

// Preview keeps the first and last five characters of key.
func Preview(key string) string {
	if len(key) <= 10 {
		return key
	}
	return key[:5] + "..." + key[len(key)-5:]
}
