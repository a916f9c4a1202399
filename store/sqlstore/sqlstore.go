// Package sqlstore implements store.Store on database/sql for SQLite and
// PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cyp0633/schedsync/internal/metrics"
	"github.com/cyp0633/schedsync/store"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Store implements store.Store.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to dsn with driver, checks the connection and applies the
// schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if !strings.Contains(dsn, "_foreign_keys") {
			dsn += sep(dsn) + "_foreign_keys=on"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == DriverSQLite {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func sep(dsn string) string {
	if strings.Contains(dsn, "?") {
		return "&"
	}
	return "?"
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// HealthCheck verifies that the underlying database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB(ctx, "db.healthcheck")()
	return s.db.PingContext(ctx)
}

func observeDB(ctx context.Context, operation string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveDBLatency(ctx, operation, start)
	}
}

// rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &store.Error{Type: store.ErrUnavailable, Message: op, Err: err}
}

func lookup(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.NotFound(what)
	}
	return wrap("get "+what, err)
}

// App operations

func (s *Store) CreateApp(ctx context.Context, app *store.App) error {
	defer observeDB(ctx, "apps.create")()
	var exists int
	err := s.queryRow(ctx, `SELECT 1 FROM apps WHERE client_id = ?`, app.ClientID).Scan(&exists)
	switch {
	case err == nil:
		return &store.Error{Type: store.ErrAlreadyExists, Message: "app already exists"}
	case !errors.Is(err, sql.ErrNoRows):
		return wrap("create app", err)
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	err = s.queryRow(ctx,
		`INSERT INTO apps (client_id, created_at) VALUES (?, ?) RETURNING id`,
		app.ClientID, app.CreatedAt.UTC(),
	).Scan(&app.ID)
	return wrap("create app", err)
}

func (s *Store) GetAppByClientID(ctx context.Context, clientID string) (*store.App, error) {
	defer observeDB(ctx, "apps.get")()
	app := &store.App{}
	err := s.queryRow(ctx,
		`SELECT id, client_id, created_at FROM apps WHERE client_id = ?`, clientID,
	).Scan(&app.ID, &app.ClientID, &app.CreatedAt)
	if err != nil {
		return nil, lookup("app", err)
	}
	return app, nil
}

func (s *Store) CreateAppKey(ctx context.Context, key *store.AppKey) error {
	defer observeDB(ctx, "app_keys.create")()
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	err := s.queryRow(ctx,
		`INSERT INTO app_keys (app_id, key_hash, key_preview, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		key.AppID, key.KeyHash, key.KeyPreview, key.CreatedAt.UTC(),
	).Scan(&key.ID)
	return wrap("create app key", err)
}

func (s *Store) ListAppKeys(ctx context.Context, appID int64) ([]*store.AppKey, error) {
	defer observeDB(ctx, "app_keys.list")()
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, app_id, key_hash, key_preview, created_at FROM app_keys WHERE app_id = ? ORDER BY id`), appID)
	if err != nil {
		return nil, wrap("list app keys", err)
	}
	defer rows.Close()

	keys := []*store.AppKey{}
	for rows.Next() {
		k := &store.AppKey{}
		if err := rows.Scan(&k.ID, &k.AppID, &k.KeyHash, &k.KeyPreview, &k.CreatedAt); err != nil {
			return nil, wrap("list app keys", err)
		}
		keys = append(keys, k)
	}
	return keys, wrap("list app keys", rows.Err())
}

// Group operations

func (s *Store) CreateGroup(ctx context.Context, g *store.Group) error {
	defer observeDB(ctx, "groups.create")()
	err := s.queryRow(ctx,
		`INSERT INTO groups (app_id, name) VALUES (?, ?) RETURNING id`,
		g.AppID, g.Name,
	).Scan(&g.ID)
	return wrap("create group", err)
}

func (s *Store) GetGroup(ctx context.Context, id int64) (*store.Group, error) {
	defer observeDB(ctx, "groups.get")()
	g := &store.Group{}
	err := s.queryRow(ctx,
		`SELECT id, app_id, name FROM groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.AppID, &g.Name)
	if err != nil {
		return nil, lookup("group", err)
	}
	return g, nil
}

// Integration operations

func (s *Store) CreateIntegration(ctx context.Context, in *store.Integration) error {
	defer observeDB(ctx, "integrations.create")()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	err := s.queryRow(ctx,
		`INSERT INTO integrations (group_id, service, created_at) VALUES (?, ?, ?) RETURNING id`,
		in.GroupID, int(in.Service), in.CreatedAt.UTC(),
	).Scan(&in.ID)
	return wrap("create integration", err)
}

func (s *Store) GetIntegration(ctx context.Context, id int64) (*store.Integration, error) {
	defer observeDB(ctx, "integrations.get")()
	in := &store.Integration{}
	var service int
	err := s.queryRow(ctx,
		`SELECT id, group_id, service, created_at FROM integrations WHERE id = ?`, id,
	).Scan(&in.ID, &in.GroupID, &service, &in.CreatedAt)
	if err != nil {
		return nil, lookup("integration", err)
	}
	in.Service = store.ServiceType(service)
	return in, nil
}

// OAuth integration operations

func (s *Store) CreateOAuthIntegration(ctx context.Context, oi *store.OAuthIntegration) error {
	defer observeDB(ctx, "oauth_integrations.create")()
	err := s.queryRow(ctx,
		`INSERT INTO oauth_integrations (integration_id, service, access_token, refresh_token, expires_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`,
		oi.IntegrationID, int(oi.Service), oi.AccessToken, oi.RefreshToken, oi.ExpiresAt.UTC(),
	).Scan(&oi.ID)
	return wrap("create oauth integration", err)
}

func (s *Store) GetOAuthIntegration(ctx context.Context, integrationID int64) (*store.OAuthIntegration, error) {
	defer observeDB(ctx, "oauth_integrations.get")()
	oi := &store.OAuthIntegration{}
	var service int
	err := s.queryRow(ctx,
		`SELECT id, integration_id, service, access_token, refresh_token, expires_at
		FROM oauth_integrations WHERE integration_id = ?`, integrationID,
	).Scan(&oi.ID, &oi.IntegrationID, &service, &oi.AccessToken, &oi.RefreshToken, &oi.ExpiresAt)
	if err != nil {
		return nil, lookup("oauth integration", err)
	}
	oi.Service = store.ServiceType(service)
	return oi, nil
}

func (s *Store) SaveOAuthIntegration(ctx context.Context, oi *store.OAuthIntegration) error {
	defer observeDB(ctx, "oauth_integrations.save")()
	res, err := s.exec(ctx,
		`UPDATE oauth_integrations SET access_token = ?, refresh_token = ?, expires_at = ?
		WHERE integration_id = ?`,
		oi.AccessToken, oi.RefreshToken, oi.ExpiresAt.UTC(), oi.IntegrationID,
	)
	if err != nil {
		return wrap("save oauth integration", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.NotFound("oauth integration")
	}
	return nil
}

// State operations

func (s *Store) CreateState(ctx context.Context, st *store.OAuth2State) error {
	defer observeDB(ctx, "oauth2_states.create")()
	err := s.queryRow(ctx,
		`INSERT INTO oauth2_states (state, group_id, service, expires_at) VALUES (?, ?, ?, ?) RETURNING id`,
		st.State, st.GroupID, int(st.Service), st.ExpiresAt.UTC(),
	).Scan(&st.ID)
	return wrap("create state", err)
}

func (s *Store) GetState(ctx context.Context, state string) (*store.OAuth2State, error) {
	defer observeDB(ctx, "oauth2_states.get")()
	st := &store.OAuth2State{}
	var service int
	err := s.queryRow(ctx,
		`SELECT id, state, group_id, service, expires_at FROM oauth2_states WHERE state = ?`, state,
	).Scan(&st.ID, &st.State, &st.GroupID, &service, &st.ExpiresAt)
	if err != nil {
		return nil, lookup("state", err)
	}
	st.Service = store.ServiceType(service)
	return st, nil
}

func (s *Store) DeleteState(ctx context.Context, state string) error {
	defer observeDB(ctx, "oauth2_states.delete")()
	res, err := s.exec(ctx, `DELETE FROM oauth2_states WHERE state = ?`, state)
	if err != nil {
		return wrap("delete state", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.NotFound("state")
	}
	return nil
}

var _ store.Store = (*Store)(nil)
