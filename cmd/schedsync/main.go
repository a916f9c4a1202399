package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cyp0633/schedsync/callback"
	"github.com/cyp0633/schedsync/config"
	"github.com/cyp0633/schedsync/store/sqlstore"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{stdout: stdout, stderr: stderr}
	cmd := &cobra.Command{
		Use:          "schedsync",
		Short:        "Synchronize calendars from Google, Outlook and CalDAV servers",
		SilenceUsage: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "optional YAML config file; environment variables override it")

	cmd.AddCommand(
		newServeCmd(opts),
		newCaldavCmd(opts),
		newCalendarsCmd(opts),
		newRevokeCmd(opts),
		newAppCmd(opts),
	)
	return cmd
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// app is what the config-backed commands share.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *sqlstore.Store
	orchestrator *callback.Orchestrator
}

func (o *rootOptions) loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(o.stderr, cfg.Level())

	st, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		orchestrator: &callback.Orchestrator{
			Store:  st,
			Config: cfg,
			Logger: logger,
		},
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
