package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	statusadapter "github.com/bnema/lobbyopoly-cli/internal/adapters/render/status"
	"github.com/bnema/lobbyopoly-cli/internal/application"
	"github.com/bnema/lobbyopoly-cli/internal/logging"
	"github.com/bnema/lobbyopoly-cli/internal/reconcile"
	"github.com/bnema/lobbyopoly-cli/internal/store"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	watchChromeHeight = 2
	logFileMode       = 0o600
)

func newWatchCmd(app *app) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow your lobby live until you quit or leave it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Logs on stderr would tear the full-screen view.
			app.logger = zap.NewNop()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFileMode)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer func() { _ = f.Close() }()

				logger, err := logging.New(app.cfg.GetString(keyLogLevel), f)
				if err != nil {
					return err
				}
				app.logger = logger
			}

			return app.withClient(cmd, func(ctx context.Context, c *client) error {
				if !c.store.State().InLobby() {
					return errNotJoined
				}
				return runWatch(ctx, cmd, app, c)
			})
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file while the view is open")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, app *app, c *client) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runnerStates, stopRunner := c.store.Subscribe()
	defer stopRunner()
	uiStates, stopUI := c.store.Subscribe()
	defer stopUI()

	runner := reconcile.NewRunner(c.strategy, c.store, app.logger.Named("runner"))
	model := newWatchModel(uiStates, app.now)

	var final watchModel
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Follow(gctx, runnerStates)
	})
	g.Go(func() error {
		defer cancel()

		p := tea.NewProgram(model,
			tea.WithContext(gctx),
			tea.WithAltScreen(),
			tea.WithInput(cmd.InOrStdin()),
			tea.WithOutput(cmd.OutOrStdout()),
		)
		result, err := p.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("run watch view: %w", err)
		}
		if m, ok := result.(watchModel); ok {
			final = m
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if final.gone {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "You are no longer in this lobby.")
		return err
	}
	return nil
}

type stateMsg store.State

type statesClosedMsg struct{}

func waitForState(states <-chan store.State) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-states
		if !ok {
			return statesClosedMsg{}
		}
		return stateMsg(state)
	}
}

type watchModel struct {
	states   <-chan store.State
	now      func() time.Time
	state    store.State
	spinner  spinner.Model
	viewport viewport.Model
	ready    bool
	joined   bool
	gone     bool
}

func newWatchModel(states <-chan store.State, now func() time.Time) watchModel {
	return watchModel{
		states:  states,
		now:     now,
		spinner: newSpinner(),
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForState(m.states))
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		height := max(msg.Height-watchChromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.viewport.SetContent(m.content())
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stateMsg:
		m.state = store.State(msg)
		switch {
		case m.state.Removed():
			m.gone = true
			return m, tea.Quit
		case m.state.InLobby():
			m.joined = true
		case m.joined:
			m.gone = true
			return m, tea.Quit
		}
		if m.ready {
			m.viewport.SetContent(m.content())
		}
		return m, waitForState(m.states)

	case statesClosedMsg:
		return m, tea.Quit

	default:
		return m, nil
	}
}

func (m watchModel) content() string {
	status, ok := application.BuildStatus(m.state, 0)
	if !ok {
		return "Waiting for the first lobby snapshot..."
	}
	return statusadapter.View(status, statusadapter.RenderOptions{Now: m.now(), Width: m.viewport.Width})
}

func (m watchModel) View() string {
	var b strings.Builder

	if m.state.Loading() || m.state.Lobby == nil {
		b.WriteString(m.spinner.View() + " Syncing lobby...")
	} else {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("● live"))
	}
	b.WriteString("\n")

	if m.ready {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.content())
	}
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("↑/↓ scroll · q quit"))

	return b.String()
}
