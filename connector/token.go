package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cyp0633/schedsync/store"
	"github.com/cyp0633/schedsync/syncerr"
	"golang.org/x/oauth2"
)

// refreshLocks serializes refreshes of the same integration in this process.
var refreshLocks = &keyedMutex{locks: make(map[int64]*refCountedMutex)}

type refCountedMutex struct {
	// sem holds a token while the key is locked.
	sem  chan struct{}
	refs int
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*refCountedMutex
}

// lock blocks until key is free or ctx is done. On success it returns the
// unlock func.
func (k *keyedMutex) lock(ctx context.Context, key int64) (func(), error) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refCountedMutex{sem: make(chan struct{}, 1)}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, m)
		return nil, ctx.Err()
	}
	return func() {
		<-m.sem
		k.release(key, m)
	}, nil
}

func (k *keyedMutex) release(key int64, m *refCountedMutex) {
	k.mu.Lock()
	m.refs--
	if m.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

func (b *base) Refresh(ctx context.Context, oi *store.OAuthIntegration, saver store.OAuthIntegrationSaver) (*store.OAuthIntegration, error) {
	unlock, err := refreshLocks.lock(ctx, oi.IntegrationID)
	if err != nil {
		return nil, fmt.Errorf("wait for refresh of integration %d: %w", oi.IntegrationID, err)
	}
	defer unlock()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	now := b.clock()
	tok, err := b.cfg.Client().TokenSource(ctx, &oauth2.Token{RefreshToken: oi.RefreshToken}).Token()
	if err != nil {
		return nil, tokenError(err)
	}

	ttl, err := expiresIn(tok)
	if err != nil {
		return nil, syncerr.Parse(err)
	}

	oi.AccessToken = tok.AccessToken
	oi.ExpiresAt = now.Add(ttl)
	if tok.RefreshToken != "" {
		oi.RefreshToken = tok.RefreshToken
	}

	if err := saver.SaveOAuthIntegration(ctx, oi); err != nil {
		return nil, fmt.Errorf("%w: save refreshed token: %w", syncerr.ErrPersistence, err)
	}
	b.logger.InfoContext(ctx, "refreshed access token",
		"integration_id", oi.IntegrationID,
		"expires_at", oi.ExpiresAt)
	return oi, nil
}

func (b *base) Exchange(ctx context.Context, code string) (*store.OAuthIntegration, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	now := b.clock()
	tok, err := b.cfg.Client().Exchange(ctx, code, b.exchangeOpts...)
	if err != nil {
		return nil, tokenError(err)
	}
	if tok.RefreshToken == "" {
		return nil, syncerr.Parse(errors.New("token response missing refresh_token"))
	}
	ttl, err := expiresIn(tok)
	if err != nil {
		return nil, syncerr.Parse(err)
	}
	return &store.OAuthIntegration{
		Service:      b.service,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    now.Add(ttl),
	}, nil
}

// expiresIn reads the raw expires_in field so expiry is computed from the
// connector's clock instead of x/oauth2's.
func expiresIn(tok *oauth2.Token) (time.Duration, error) {
	var secs int64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		secs = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("expires_in: %w", err)
		}
		secs = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expires_in: %w", err)
		}
		secs = n
	default:
		return 0, errors.New("token response missing expires_in")
	}
	return time.Duration(secs) * time.Second, nil
}

// tokenError maps an x/oauth2 token endpoint failure onto syncerr kinds.
func tokenError(err error) error {
	if se, ok := statusError(err); ok {
		return se
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		se := &syncerr.StatusError{Body: string(re.Body)}
		if re.Response != nil {
			se.StatusCode = re.Response.StatusCode
		}
		return se
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return syncerr.Network(err)
	}
	return syncerr.Parse(err)
}
