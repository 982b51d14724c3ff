package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	statusadapter "github.com/bnema/lobbyopoly-cli/internal/adapters/render/status"
	"github.com/bnema/lobbyopoly-cli/internal/application"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show balances, players and recent events of your lobby",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withClient(cmd, func(ctx context.Context, c *client) error {
				if err := syncWithSpinner(ctx, cmd, c, asJSON); err != nil {
					return err
				}

				status, ok := application.BuildStatus(c.store.State(), limit)
				if !ok {
					return errLobbyGone
				}
				return writeStatusOutput(cmd, app, status, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of events to show (0 for all)")

	return cmd
}

// syncWithSpinner skips the spinner for JSON output so stdout stays parseable
// and stderr stays quiet.
func syncWithSpinner(ctx context.Context, cmd *cobra.Command, c *client, asJSON bool) error {
	if asJSON {
		return c.sync(ctx)
	}
	return runSpinner(ctx, cmd.ErrOrStderr(), "Syncing lobby...", c.sync)
}

func writeStatusOutput(cmd *cobra.Command, app *app, status application.LobbyStatus, asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, status)
	}

	rendered, err := app.statusRenderer(status, statusadapter.RenderOptions{
		Now:   app.now(),
		Width: terminalWidth(cmd.OutOrStdout()),
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

// terminalWidth is zero unless w is a terminal, so piped output is never
// clipped.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return 0
	}
	width, _, err := term.GetSize(f.Fd())
	if err != nil {
		return 0
	}
	return width
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
