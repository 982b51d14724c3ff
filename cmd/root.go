package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lobbyopoly",
		Short:         "Lobbyopoly client: play the banker from the terminal",
		Long:          "lobbyopoly joins a Lobbyopoly game, keeps balances and the event log in sync with the server, and sends money between players, the bank and free parking.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("server", "", "Lobbyopoly server URL (default "+defaultServerURL+")")
	flags.String("mode", "", "Sync mode: stream or poll (default "+syncModeStream+")")
	flags.String("log-level", "", "Log level: debug, info, warn, error (default warn)")

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	if err := app.bindFlags(flags); err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return app.setupLogger(cmd.ErrOrStderr())
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newStatusCmd(app),
		newEventsCmd(app),
		newCreateCmd(app),
		newJoinCmd(app),
		newLeaveCmd(app),
		newDisbandCmd(app),
		newTransferCmd(app),
		newKickCmd(app),
		newPromoteCmd(app),
		newWatchCmd(app),
		newDevServerCmd(app),
	)

	return rootCmd
}
