package main

import (
	"encoding/json"
	"fmt"

	"github.com/cyp0633/schedsync/internal/appkey"
	"github.com/spf13/cobra"
)

type appCredentials struct {
	ClientID   string `json:"client_id"`
	Key        string `json:"key"`
	KeyPreview string `json:"key_preview"`
}

func newAppCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Manage the applications allowed to call the /api endpoints",
	}
	cmd.AddCommand(newAppCreateCmd(root), newAppAddKeyCmd(root))
	return cmd
}

func newAppCreateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create an application and print its client id and key",
		Long:  "Create an application and print its client id and key. The key is stored hashed and cannot be shown again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			created, key, err := appkey.Issue(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			a.logger.Info("created app", "app_id", created.ID, "client_id", created.ClientID)
			return printCredentials(root, created.ClientID, key)
		},
	}
}

func newAppAddKeyCmd(root *rootOptions) *cobra.Command {
	var clientID string
	cmd := &cobra.Command{
		Use:   "add-key",
		Short: "Add another key to an existing application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := root.loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			found, err := a.store.GetAppByClientID(ctx, clientID)
			if err != nil {
				return fmt.Errorf("get app %s: %w", clientID, err)
			}
			key, err := appkey.AddKey(ctx, a.store, found.ID)
			if err != nil {
				return err
			}
			return printCredentials(root, found.ClientID, key)
		},
	}
	cmd.Flags().StringVar(&clientID, "client-id", "", "client id of the application")
	_ = cmd.MarkFlagRequired("client-id")
	return cmd
}

func printCredentials(root *rootOptions, clientID, key string) error {
	enc := json.NewEncoder(root.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(appCredentials{ClientID: clientID, Key: key, KeyPreview: appkey.Preview(key)})
}
