package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/fakebackend"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	defaultListenAddr = "127.0.0.1:5000"
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func newDevServerCmd(app *app) *cobra.Command {
	var listen string
	var msgpack bool
	var lobbyTTL time.Duration

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run an in-memory lobby server for local play and testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", listen, err)
			}

			backend := fakebackend.New(fakebackend.Options{
				Msgpack:  msgpack,
				LobbyTTL: lobbyTTL,
				Logger:   app.logger.Named("devserver"),
			})
			return serve(cmd, app.logger, ln, backend.Handler())
		},
	}

	cmd.Flags().StringVar(&listen, "listen", defaultListenAddr, "Address to listen on")
	cmd.Flags().BoolVar(&msgpack, "msgpack", false, "Answer API requests with msgpack bodies")
	cmd.Flags().DurationVar(&lobbyTTL, "lobby-ttl", fakebackend.DefaultLobbyTTL, "How long a lobby lives")

	return cmd
}

// serve runs handler on ln until the command context is canceled.
func serve(cmd *cobra.Command, logger *zap.Logger, ln net.Listener, handler http.Handler) error {
	ctx := cmd.Context()
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Serving lobbies on http://%s\n", ln.Addr()); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down dev server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
