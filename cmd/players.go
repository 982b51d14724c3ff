package cmd

import (
	"context"
	"fmt"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/view"
	"github.com/spf13/cobra"
)

func newKickCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kick PLAYER",
		Short: "Remove a player from the lobby (banker only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd, func(ctx context.Context, c *client) error {
				player, err := resolvePlayer(ctx, c, args[0])
				if err != nil {
					return err
				}
				if err := c.session.Kick(ctx, player.ID); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Kicked %s.\n", player.Name)
				return err
			})
		},
	}
}

func newPromoteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "promote PLAYER",
		Short: "Hand banker duties to another player (banker only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd, func(ctx context.Context, c *client) error {
				player, err := resolvePlayer(ctx, c, args[0])
				if err != nil {
					return err
				}
				if err := c.session.Promote(ctx, player.ID); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is now the banker.\n", player.Name)
				return err
			})
		},
	}
}

func resolvePlayer(ctx context.Context, c *client, query string) (domain.Player, error) {
	if err := c.sync(ctx); err != nil {
		return domain.Player{}, err
	}
	return view.ResolvePlayer(c.store.State(), query)
}
