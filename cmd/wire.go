package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/adapters/api"
	statusadapter "github.com/bnema/lobbyopoly-cli/internal/adapters/render/status"
	tomlrepo "github.com/bnema/lobbyopoly-cli/internal/adapters/repo/toml"
	"github.com/bnema/lobbyopoly-cli/internal/adapters/socket"
	"github.com/bnema/lobbyopoly-cli/internal/application"
	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/logging"
	"github.com/bnema/lobbyopoly-cli/internal/ports"
	"github.com/bnema/lobbyopoly-cli/internal/reconcile"
	"github.com/bnema/lobbyopoly-cli/internal/store"
	"github.com/bnema/lobbyopoly-cli/internal/view"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	errNotJoined = fmt.Errorf("%w: join one with `lobbyopoly join CODE --name NAME`", domain.ErrNotInLobby)
	errLobbyGone = fmt.Errorf("%w: the lobby closed or you were removed from it", domain.ErrNotInLobby)
)

type app struct {
	cfg            *viper.Viper
	sessions       ports.SessionRepository
	statusRenderer func(application.LobbyStatus, statusadapter.RenderOptions) (string, error)
	logger         *zap.Logger
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}

	repo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire session repository: %w", err)
	}

	return &app{
		cfg:            cfg,
		sessions:       repo,
		statusRenderer: statusadapter.Render,
		logger:         zap.NewNop(),
		now:            time.Now,
	}, nil
}

// setupLogger runs once flags are parsed.
func (a *app) setupLogger(w io.Writer) error {
	logger, err := logging.New(a.cfg.GetString(keyLogLevel), w)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// client is one connected player session: the cookie jar restored from
// disk, the store and the strategy that fills it.
type client struct {
	server      string
	jar         *api.SessionJar
	transport   api.Client
	store       *store.Store
	session     *application.Session
	strategy    reconcile.Strategy
	sessions    ports.SessionRepository
	syncTimeout time.Duration
}

// connect restores the saved session for the configured server and fetches
// preflight, which also tells whether that session is in a lobby.
func (a *app) connect(ctx context.Context) (*client, error) {
	server := domain.NormalizeServerURL(a.cfg.GetString(keyServerURL))
	if _, err := api.BuildURL(server, "/"); err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", server, err)
	}

	jar, err := api.NewSessionJar()
	if err != nil {
		return nil, err
	}

	stored, err := a.sessions.Load(ctx, server)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		a.logger.Debug("no saved session", zap.String("server", server))
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	default:
		if err := jar.Restore(server, stored.Live(a.now()).Cookies); err != nil {
			return nil, fmt.Errorf("restore session: %w", err)
		}
	}

	timeout := a.cfg.GetDuration(keyHTTPTimeout)
	transport := api.Client{
		BaseURL:        server,
		HTTPClient:     &http.Client{Jar: jar},
		RequestTimeout: timeout,
		Logger:         a.logger.Named("api"),
	}
	strategy, err := a.strategy(server, transport, jar)
	if err != nil {
		return nil, err
	}

	st := store.New(a.logger.Named("store"))
	c := &client{
		server:      server,
		jar:         jar,
		transport:   transport,
		store:       st,
		session:     application.NewSession(transport, st, a.logger.Named("session")),
		strategy:    strategy,
		sessions:    a.sessions,
		syncTimeout: timeout,
	}

	if _, err := c.session.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", server, err)
	}
	return c, nil
}

func (a *app) strategy(server string, transport ports.Transport, jar http.CookieJar) (reconcile.Strategy, error) {
	ledger := reconcile.NewLedger()

	switch mode := strings.ToLower(strings.TrimSpace(a.cfg.GetString(keySyncMode))); mode {
	case syncModeStream:
		subscriber := socket.Subscriber{BaseURL: server, Jar: jar, Logger: a.logger.Named("socket")}
		return reconcile.NewStream(subscriber, ledger, a.logger.Named("stream")), nil
	case syncModePoll:
		return reconcile.NewPoller(transport, a.cfg.GetDuration(keyPollInterval), ledger, a.logger.Named("poll")), nil
	default:
		return nil, fmt.Errorf("unsupported sync mode %q (want %s or %s)", mode, syncModeStream, syncModePoll)
	}
}

// withClient connects, runs fn and persists the session, even when fn
// failed.
func (a *app) withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client) error) error {
	ctx := cmd.Context()

	c, err := a.connect(ctx)
	if err != nil {
		return err
	}

	runErr := c.explain(fn(ctx, c))
	if err := c.persist(ctx, a.now()); err != nil {
		return errors.Join(runErr, fmt.Errorf("persist session: %w", err))
	}
	return runErr
}

// persist saves the cookies of a session that is in a lobby. A session that
// left, was removed or never joined is forgotten, so the next run starts
// from a fresh server session.
func (c *client) persist(ctx context.Context, now time.Time) error {
	if st := c.store.State(); !st.InLobby() || st.Removed() {
		return c.sessions.Delete(ctx, c.server)
	}
	return c.sessions.Save(ctx, domain.StoredSession{
		Server:    c.server,
		Cookies:   c.jar.Export(),
		UpdatedAt: now.UTC(),
	})
}

// sync runs one reconcile pass for the current lobby.
func (c *client) sync(ctx context.Context) error {
	state := c.store.State()
	if !state.InLobby() {
		return errNotJoined
	}

	ctx, cancel := context.WithTimeout(ctx, c.syncTimeout)
	defer cancel()

	if err := c.strategy.Once(ctx, state.LobbyID, c.store); err != nil {
		if errors.Is(err, reconcile.ErrLobbyGone) {
			return errLobbyGone
		}
		return fmt.Errorf("sync lobby: %w", err)
	}
	if st := c.store.State(); !st.InLobby() || st.Removed() {
		return errLobbyGone
	}
	return nil
}

// userError shows the bundle-map text of a backend error code while keeping
// the original error in the chain.
type userError struct {
	text string
	err  error
}

func (e *userError) Error() string {
	return e.text
}

func (e *userError) Unwrap() error {
	return e.err
}

func (c *client) explain(err error) error {
	var reqErr *domain.RequestError
	if err == nil || !errors.As(err, &reqErr) || reqErr.Kind != domain.RequestErrorServer {
		return err
	}
	return &userError{text: view.ErrorText(c.store.State(), err), err: err}
}
