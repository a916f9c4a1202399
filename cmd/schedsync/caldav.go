package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/cyp0633/schedsync/davclient"
	"github.com/spf13/cobra"
)

type caldavOptions struct {
	url      string
	username string
	password string
	debug    bool
}

func newCaldavCmd(root *rootOptions) *cobra.Command {
	opts := &caldavOptions{}
	cmd := &cobra.Command{
		Use:   "caldav",
		Short: "Discover calendars and events on a CalDAV server and print them as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.password == "" {
				opts.password = os.Getenv("CALDAV_PASSWORD")
			}
			level := slog.LevelInfo
			if opts.debug {
				level = slog.LevelDebug
			}

			client := davclient.New(
				davclient.WithLogger(newLogger(root.stderr, level)),
				davclient.WithMetrics(),
			)
			creds := davclient.Credentials{Username: opts.username, Password: opts.password}
			result, err := client.Sync(cmd.Context(), opts.url, creds)
			if err != nil {
				return fmt.Errorf("caldav sync: %w", err)
			}

			enc := json.NewEncoder(root.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "CalDAV server base URL")
	cmd.Flags().StringVar(&opts.username, "username", "", "Basic Auth username")
	cmd.Flags().StringVar(&opts.password, "password", "", "Basic Auth password (default $CALDAV_PASSWORD)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "log WebDAV requests and responses")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
