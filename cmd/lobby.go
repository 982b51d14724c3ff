package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/lobbyopoly-cli/internal/application"
	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newCreateCmd(app *app) *cobra.Command {
	defaults := domain.DefaultLobbyOptions()
	opts := defaults
	var name string
	var currency string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lobby, and join it as the banker when --name is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseCurrency(currency)
			if err != nil {
				return err
			}
			opts.Currency = parsed

			return app.withClient(cmd, func(ctx context.Context, c *client) error {
				code, err := c.session.CreateLobby(ctx, opts)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Lobby created: %s\n", code); err != nil {
					return err
				}

				if strings.TrimSpace(name) == "" {
					return nil
				}
				return joinLobby(ctx, cmd, c, code, name)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "Join the new lobby under this name")
	flags.BoolVar(&opts.UnlimitedBank, "unlimited-bank", defaults.UnlimitedBank, "Give the bank unlimited funds")
	flags.BoolVar(&opts.FreeParking, "free-parking", defaults.FreeParking, "Enable the free parking pot")
	flags.IntVar(&opts.MaxPlayers, "max-players", defaults.MaxPlayers, "Maximum number of players")
	flags.Int64Var(&opts.BankBalance, "bank-balance", defaults.BankBalance, "Starting bank balance")
	flags.Int64Var(&opts.StartingBalance, "starting-balance", defaults.StartingBalance, "Cash handed to each player on join")
	flags.StringVar(&currency, "currency", string(defaults.Currency), "Currency: $ (usd) or £ (gbp)")

	return cmd
}

func newJoinCmd(app *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "join CODE",
		Short: "Join a lobby by its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withClient(cmd, func(ctx context.Context, c *client) error {
				return joinLobby(ctx, cmd, c, args[0], name)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your display name in the lobby")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func joinLobby(ctx context.Context, cmd *cobra.Command, c *client, code, name string) error {
	if _, err := c.session.Join(ctx, application.JoinCommand{Code: code, Name: name}); err != nil {
		return err
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Joined lobby %s as %s.\n", strings.ToUpper(strings.TrimSpace(code)), strings.TrimSpace(name))
	return err
}

func newLeaveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Leave your lobby; your cash goes back to the bank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withClient(cmd, func(ctx context.Context, c *client) error {
				if !c.store.State().InLobby() {
					return errNotJoined
				}
				if err := c.session.Leave(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Left the lobby.")
				return err
			})
		},
	}
}

func newDisbandCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "disband",
		Short: "Close your lobby for everyone (banker only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withClient(cmd, func(ctx context.Context, c *client) error {
				if !c.store.State().InLobby() {
					return errNotJoined
				}
				if err := c.session.Disband(ctx); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Lobby disbanded.")
				return err
			})
		},
	}
}

func parseCurrency(raw string) (domain.Currency, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "$", "usd", "dollar", "dollars":
		return domain.CurrencyDollars, nil
	case "£", "gbp", "pound", "pounds":
		return domain.CurrencyPounds, nil
	default:
		return "", fmt.Errorf("unsupported currency %q (want $ or £)", raw)
	}
}
