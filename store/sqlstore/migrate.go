package sqlstore

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS apps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		client_id TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_keys (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		app_id INTEGER NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
		key_hash TEXT NOT NULL,
		key_preview TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		app_id INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS integrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		service INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS oauth_integrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		integration_id INTEGER NOT NULL UNIQUE REFERENCES integrations(id) ON DELETE CASCADE,
		service INTEGER NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS oauth2_states (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		state TEXT NOT NULL UNIQUE,
		group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		service INTEGER NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS apps (
		id BIGSERIAL PRIMARY KEY,
		client_id TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS app_keys (
		id BIGSERIAL PRIMARY KEY,
		app_id BIGINT NOT NULL REFERENCES apps(id) ON DELETE CASCADE,
		key_hash TEXT NOT NULL,
		key_preview TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id BIGSERIAL PRIMARY KEY,
		app_id BIGINT NOT NULL DEFAULT 0,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS integrations (
		id BIGSERIAL PRIMARY KEY,
		group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		service INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS oauth_integrations (
		id BIGSERIAL PRIMARY KEY,
		integration_id BIGINT NOT NULL UNIQUE REFERENCES integrations(id) ON DELETE CASCADE,
		service INTEGER NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS oauth2_states (
		id BIGSERIAL PRIMARY KEY,
		state TEXT NOT NULL UNIQUE,
		group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		service INTEGER NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	defer observeDB(ctx, "db.migrate")()
	schema := sqliteSchema
	if s.driver == DriverPostgres {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
