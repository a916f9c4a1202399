package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore implements the Store interface for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveOAuthIntegration(ctx context.Context, oi *OAuthIntegration) error {
	args := m.Called(ctx, oi)
	return args.Error(0)
}

func (m *MockStore) CreateApp(ctx context.Context, app *App) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockStore) GetAppByClientID(ctx context.Context, clientID string) (*App, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*App), args.Error(1)
}

func (m *MockStore) CreateAppKey(ctx context.Context, key *AppKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStore) ListAppKeys(ctx context.Context, appID int64) ([]*AppKey, error) {
	args := m.Called(ctx, appID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*AppKey), args.Error(1)
}

func (m *MockStore) CreateGroup(ctx context.Context, g *Group) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockStore) GetGroup(ctx context.Context, id int64) (*Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Group), args.Error(1)
}

func (m *MockStore) CreateIntegration(ctx context.Context, in *Integration) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockStore) GetIntegration(ctx context.Context, id int64) (*Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Integration), args.Error(1)
}

func (m *MockStore) CreateOAuthIntegration(ctx context.Context, oi *OAuthIntegration) error {
	args := m.Called(ctx, oi)
	return args.Error(0)
}

func (m *MockStore) GetOAuthIntegration(ctx context.Context, integrationID int64) (*OAuthIntegration, error) {
	args := m.Called(ctx, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OAuthIntegration), args.Error(1)
}

func (m *MockStore) CreateState(ctx context.Context, st *OAuth2State) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *MockStore) GetState(ctx context.Context, state string) (*OAuth2State, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*OAuth2State), args.Error(1)
}

func (m *MockStore) DeleteState(ctx context.Context, state string) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

var _ Store = (*MockStore)(nil)
