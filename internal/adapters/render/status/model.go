package status

import (
	"errors"
	"io"

	"github.com/bnema/lobbyopoly-cli/internal/application"
	tea "github.com/charmbracelet/bubbletea"
)

var errUnexpectedFrame = errors.New("unexpected final lobby frame model")

type renderReadyMsg struct{}

// frame lays out one lobby status. A window size message narrows the
// layout; without one the width from RenderOptions applies.
type frame struct {
	status application.LobbyStatus
	opts   RenderOptions
	styles styles
	output string
}

func newFrame(status application.LobbyStatus, opts RenderOptions) frame {
	return frame{
		status: status,
		opts:   opts,
		styles: newStyles(),
	}
}

func (f frame) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (f frame) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 && (f.opts.Width == 0 || msg.Width < f.opts.Width) {
			f.opts.Width = msg.Width
		}
		if f.output != "" {
			f.output = renderView(f.status, f.opts, f.styles)
		}
		return f, nil
	case renderReadyMsg:
		f.output = renderView(f.status, f.opts, f.styles)
		return f, tea.Quit
	default:
		return f, nil
	}
}

func (f frame) View() string {
	return f.output
}

// Render draws a lobby status once through a headless bubbletea program.
func Render(status application.LobbyStatus, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newFrame(status, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	final, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := final.(frame)
	if !ok {
		return "", errUnexpectedFrame
	}
	return rendered.View(), nil
}
