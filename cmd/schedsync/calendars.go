package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCalendarsCmd(root *rootOptions) *cobra.Command {
	var integrationID int64
	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars of an OAuth2 integration, refreshing its token if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			calendars, _, err := a.orchestrator.Calendars(cmd.Context(), integrationID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(root.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(calendars)
		},
	}
	cmd.Flags().Int64Var(&integrationID, "integration", 0, "integration id")
	_ = cmd.MarkFlagRequired("integration")
	return cmd
}

func newRevokeCmd(root *rootOptions) *cobra.Command {
	var integrationID int64
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke the access token of an OAuth2 integration at the provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := root.loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			in, err := a.store.GetIntegration(ctx, integrationID)
			if err != nil {
				return err
			}
			conn, err := a.orchestrator.Connector(in.Service)
			if err != nil {
				return err
			}
			oi, err := a.store.GetOAuthIntegration(ctx, integrationID)
			if err != nil {
				return err
			}
			if err := conn.Revoke(ctx, oi); err != nil {
				return fmt.Errorf("revoke %s token: %w", in.Service, err)
			}
			fmt.Fprintf(root.stdout, "revoked token of integration %d\n", integrationID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&integrationID, "integration", 0, "integration id")
	_ = cmd.MarkFlagRequired("integration")
	return cmd
}
