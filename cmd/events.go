package cmd

import (
	"context"
	"fmt"

	"github.com/bnema/lobbyopoly-cli/internal/application"
	"github.com/spf13/cobra"
)

const eventTimeLayout = "15:04:05"

func newEventsCmd(app *app) *cobra.Command {
	var asJSON bool
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the lobby event log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withClient(cmd, func(ctx context.Context, c *client) error {
				if err := syncWithSpinner(ctx, cmd, c, asJSON); err != nil {
					return err
				}

				events := application.Events(c.store.State(), limit)
				if asJSON {
					return writeJSON(cmd, events)
				}

				if len(events) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "No events yet.")
					return err
				}
				for _, event := range events {
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", event.Time.Local().Format(eventTimeLayout), event.Text); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of events to print (0 for all)")

	return cmd
}
