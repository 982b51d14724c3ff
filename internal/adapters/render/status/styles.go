package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	section    lipgloss.Style
	heading    lipgloss.Style
	account    lipgloss.Style
	amount     lipgloss.Style
	player     lipgloss.Style
	badge      lipgloss.Style
	you        lipgloss.Style
	detail     lipgloss.Style
	warning    lipgloss.Style
	empty      lipgloss.Style
	eventTime  lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		section:    lipgloss.NewStyle().MarginTop(1),
		heading:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250")),
		account:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		amount:     lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		player:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		badge:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		you:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		empty:      lipgloss.NewStyle().Faint(true),
		eventTime:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
