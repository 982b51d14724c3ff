package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/lobbyopoly-cli/internal/application"
	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/store"
	"github.com/bnema/lobbyopoly-cli/internal/view"
	"github.com/spf13/cobra"
)

func newTransferCmd(app *app) *cobra.Command {
	var from string
	var to string
	var amount string

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Send money to a player, the bank or free parking",
		Long:  "Send money from your own cash (self), or as the banker from the bank or free parking. --to takes bank, fp, a player name or a player id. --amount takes a number, 10% or all.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withClient(cmd, func(ctx context.Context, c *client) error {
				if err := c.sync(ctx); err != nil {
					return err
				}
				state := c.store.State()

				source, err := view.ResolveSource(state, from)
				if err != nil {
					return err
				}
				target, err := view.ResolveTarget(state, source, to)
				if err != nil {
					return err
				}
				value, err := parseAmount(state, source, amount)
				if err != nil {
					return err
				}

				if err := c.session.Transfer(ctx, application.TransferCommand{
					Source:      source,
					Destination: target.ID,
					Amount:      value,
				}); err != nil {
					return err
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Sent %s from %s to %s.\n", view.FormatAmount(state, value), sourceLabel(state, source), target.Label)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "self", "Source account: self, bank or fp")
	cmd.Flags().StringVar(&to, "to", "", "Target: bank, fp, a player name or id")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount, 10% or all")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// parseAmount accepts a whole number or one of the quick amount labels of
// source.
func parseAmount(state store.State, source, raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	for _, quick := range view.QuickAmounts(state, source) {
		if strings.EqualFold(quick.Label, trimmed) {
			if quick.Amount <= 0 {
				return 0, domain.ErrInvalidAmount
			}
			return quick.Amount, nil
		}
	}

	value, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: want a whole number, 10%% or all", raw)
	}
	if value <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	return value, nil
}

func sourceLabel(state store.State, source string) string {
	for _, account := range view.Balances(state) {
		if account.ID == source {
			return account.Label
		}
	}
	return source
}
