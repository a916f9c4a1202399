// memory based implementation for tests and single-process deployments
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cyp0633/schedsync/store"
)

// Store implements store.Store using in-memory maps
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	apps         map[string]*store.App     // key: client id
	appKeys      map[int64][]*store.AppKey // key: app id
	groups       map[int64]*store.Group
	integrations map[int64]*store.Integration
	oauth        map[int64]*store.OAuthIntegration // key: integration id
	states       map[string]*store.OAuth2State     // key: state value
}

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		apps:         make(map[string]*store.App),
		appKeys:      make(map[int64][]*store.AppKey),
		groups:       make(map[int64]*store.Group),
		integrations: make(map[int64]*store.Integration),
		oauth:        make(map[int64]*store.OAuthIntegration),
		states:       make(map[string]*store.OAuth2State),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// App operations

func (s *Store) CreateApp(_ context.Context, app *store.App) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.apps[app.ClientID]; exists {
		return &store.Error{Type: store.ErrAlreadyExists, Message: "app already exists"}
	}
	app.ID = s.id()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now()
	}
	cp := *app
	s.apps[app.ClientID] = &cp
	return nil
}

func (s *Store) GetAppByClientID(_ context.Context, clientID string) (*store.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[clientID]
	if !ok {
		return nil, store.NotFound("app")
	}
	cp := *app
	return &cp, nil
}

func (s *Store) CreateAppKey(_ context.Context, key *store.AppKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, app := range s.apps {
		if app.ID == key.AppID {
			found = true
			break
		}
	}
	if !found {
		return &store.Error{Type: store.ErrInvalidInput, Message: "app does not exist"}
	}
	key.ID = s.id()
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	cp := *key
	s.appKeys[key.AppID] = append(s.appKeys[key.AppID], &cp)
	return nil
}

func (s *Store) ListAppKeys(_ context.Context, appID int64) ([]*store.AppKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*store.AppKey, 0, len(s.appKeys[appID]))
	for _, k := range s.appKeys[appID] {
		cp := *k
		keys = append(keys, &cp)
	}
	return keys, nil
}

// Group operations

func (s *Store) CreateGroup(_ context.Context, g *store.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g.ID = s.id()
	cp := *g
	s.groups[g.ID] = &cp
	return nil
}

func (s *Store) GetGroup(_ context.Context, id int64) (*store.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, store.NotFound("group")
	}
	cp := *g
	return &cp, nil
}

// Integration operations

func (s *Store) CreateIntegration(_ context.Context, in *store.Integration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[in.GroupID]; !ok {
		return &store.Error{Type: store.ErrInvalidInput, Message: "group does not exist"}
	}
	in.ID = s.id()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	cp := *in
	s.integrations[in.ID] = &cp
	return nil
}

func (s *Store) GetIntegration(_ context.Context, id int64) (*store.Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in, ok := s.integrations[id]
	if !ok {
		return nil, store.NotFound("integration")
	}
	cp := *in
	return &cp, nil
}

// OAuth integration operations

func (s *Store) CreateOAuthIntegration(_ context.Context, oi *store.OAuthIntegration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.integrations[oi.IntegrationID]; !ok {
		return &store.Error{Type: store.ErrInvalidInput, Message: "integration does not exist"}
	}
	if _, exists := s.oauth[oi.IntegrationID]; exists {
		return &store.Error{Type: store.ErrAlreadyExists, Message: "oauth integration already exists"}
	}
	oi.ID = s.id()
	cp := *oi
	s.oauth[oi.IntegrationID] = &cp
	return nil
}

func (s *Store) GetOAuthIntegration(_ context.Context, integrationID int64) (*store.OAuthIntegration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	oi, ok := s.oauth[integrationID]
	if !ok {
		return nil, store.NotFound("oauth integration")
	}
	cp := *oi
	return &cp, nil
}

func (s *Store) SaveOAuthIntegration(_ context.Context, oi *store.OAuthIntegration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.oauth[oi.IntegrationID]; !ok {
		return store.NotFound("oauth integration")
	}
	cp := *oi
	s.oauth[oi.IntegrationID] = &cp
	return nil
}

// State operations

func (s *Store) CreateState(_ context.Context, st *store.OAuth2State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.states[st.State]; exists {
		return &store.Error{Type: store.ErrAlreadyExists, Message: "state already exists"}
	}
	st.ID = s.id()
	cp := *st
	s.states[st.State] = &cp
	return nil
}

func (s *Store) GetState(_ context.Context, state string) (*store.OAuth2State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[state]
	if !ok {
		return nil, store.NotFound("state")
	}
	cp := *st
	return &cp, nil
}

func (s *Store) DeleteState(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[state]; !ok {
		return store.NotFound("state")
	}
	delete(s.states, state)
	return nil
}

var _ store.Store = (*Store)(nil)
