// Package config loads the service configuration from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
	"gopkg.in/yaml.v3"
)

const (
	GoogleRevokeURL  = "https://accounts.google.com/o/oauth2/revoke"
	OutlookRevokeURL = "https://login.microsoftonline.com/consumers/oauth2/v2.0/revoke"
)

// OAuth2 describes one provider's OAuth2 client.
type OAuth2 struct {
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
	RevokeURL    string `yaml:"revoke_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	// Scope is space separated, as sent on the wire.
	Scope string `yaml:"scope"`
}

// Scopes splits Scope on whitespace.
func (o OAuth2) Scopes() []string {
	return strings.Fields(o.Scope)
}

// Client builds the x/oauth2 configuration. Client credentials are sent in
// the form body.
func (o OAuth2) Client() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURL:  o.RedirectURI,
		Scopes:       o.Scopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:   o.AuthURL,
			TokenURL:  o.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (o OAuth2) validate(prefix string) error {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, prefix+"_"+name)
		}
	}
	check("CLIENT_ID", o.ClientID)
	check("CLIENT_SECRET", o.ClientSecret)
	check("REDIRECT_URI", o.RedirectURI)
	check("SCOPES", o.Scope)
	check("AUTH_URL", o.AuthURL)
	check("TOKEN_URL", o.TokenURL)
	check("REVOKE_URL", o.RevokeURL)
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Database selects the store driver and its connection string.
type Database struct {
	// Driver is "sqlite3" or "pgx".
	Driver string `yaml:"driver"`
	DSN    string `yaml:"url"`
}

// Config is the complete service configuration.
type Config struct {
	OAuth2 struct {
		Google  OAuth2 `yaml:"google"`
		Outlook OAuth2 `yaml:"outlook"`
	} `yaml:"oauth2"`
	Database   Database `yaml:"database"`
	ListenAddr string   `yaml:"listen_addr"`
	LogLevel   string   `yaml:"log_level"`
}

// Default returns the provider endpoints and local defaults. Client
// credentials have no default.
func Default() *Config {
	cfg := &Config{
		Database:   Database{Driver: "sqlite3", DSN: "file:schedsync.db"},
		ListenAddr: ":8080",
		LogLevel:   "info",
	}
	cfg.OAuth2.Google = OAuth2{
		AuthURL:   google.Endpoint.AuthURL,
		TokenURL:  google.Endpoint.TokenURL,
		RevokeURL: GoogleRevokeURL,
	}
	outlook := microsoft.AzureADEndpoint("consumers")
	cfg.OAuth2.Outlook = OAuth2{
		AuthURL:   outlook.AuthURL,
		TokenURL:  outlook.TokenURL,
		RevokeURL: OutlookRevokeURL,
	}
	return cfg
}

// Load reads path (when not empty) over the defaults, applies the
// environment on top and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envProvider(&c.OAuth2.Google, "GOOGLE")
	envProvider(&c.OAuth2.Outlook, "OUTLOOK")
	setenv(&c.Database.Driver, "DATABASE_DRIVER")
	setenv(&c.Database.DSN, "DATABASE_URL")
	setenv(&c.ListenAddr, "LISTEN_ADDR")
	setenv(&c.LogLevel, "LOG_LEVEL")
}

func envProvider(o *OAuth2, prefix string) {
	setenv(&o.ClientID, prefix+"_CLIENT_ID")
	setenv(&o.ClientSecret, prefix+"_CLIENT_SECRET")
	setenv(&o.RedirectURI, prefix+"_REDIRECT_URI")
	setenv(&o.Scope, prefix+"_SCOPES")
	setenv(&o.AuthURL, prefix+"_AUTH_URL")
	setenv(&o.TokenURL, prefix+"_TOKEN_URL")
	setenv(&o.RevokeURL, prefix+"_REVOKE_URL")
}

func setenv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate reports every missing required value.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.OAuth2.Google.validate("GOOGLE"))
	errs = append(errs, c.OAuth2.Outlook.validate("OUTLOOK"))
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be sqlite3 or pgx, got %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}
