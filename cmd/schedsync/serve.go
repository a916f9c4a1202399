package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cyp0633/schedsync/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the OAuth2 callback and calendar API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			handler := server.New(a.orchestrator,
				server.WithHealthCheck(a.store.HealthCheck),
				server.WithLogger(a.logger),
			)
			srv := &http.Server{
				Addr:         a.cfg.ListenAddr,
				Handler:      handler,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 60 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server listening", "addr", a.cfg.ListenAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("graceful shutdown failed", "error", err)
				return err
			}
			return nil
		},
	}
}
