package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/application"
	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const (
	balanceBarWidth    = 20
	minBalanceBarWidth = 5
	// playerLineChrome is the room a player line needs beside its name and
	// bar: separators, the amount and the banker badge.
	playerLineChrome = 24
)

type RenderOptions struct {
	Now time.Time
	// EventLimit caps the rendered log. Zero renders every event.
	EventLimit int
	// Width clips every line and shrinks the balance bars to fit. Zero
	// leaves lines unclipped.
	Width int
}

// View renders a lobby status without going through a bubbletea program.
// The watch TUI calls it on every state change.
func View(status application.LobbyStatus, opts RenderOptions) string {
	return renderView(status, opts, newStyles())
}

func renderView(status application.LobbyStatus, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(fmt.Sprintf("Lobby %s", status.Code)),
		s.header.Render(headerLine(status, opts.Now)),
	}

	if status.Disbanded {
		lines = append(lines, s.warning.Render("This lobby has been disbanded."))
	}

	lines = append(lines,
		s.section.Render(renderAccounts(status, s)),
		s.section.Render(renderPlayers(status, opts.Width, s)),
		s.section.Render(renderEvents(status, opts, s)),
	)

	out := lipgloss.JoinVertical(lipgloss.Left, lines...)
	if opts.Width > 0 {
		out = lipgloss.NewStyle().MaxWidth(opts.Width).Render(out)
	}
	return out
}

func headerLine(status application.LobbyStatus, now time.Time) string {
	parts := []string{fmt.Sprintf("players: %d", len(status.Players))}
	if status.You != "" {
		role := "player"
		if status.Banker {
			role = "banker"
		}
		parts = append(parts, fmt.Sprintf("you: %s (%s)", status.You, role))
	}
	if !status.Expires.IsZero() {
		parts = append(parts, formatExpiry(status.Expires, now))
	}
	return strings.Join(parts, " · ")
}

func renderAccounts(status application.LobbyStatus, s styles) string {
	parts := []string{s.heading.Render("Balances")}
	if len(status.Accounts) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, append(parts, s.empty.Render("No balances available."))...)
	}

	width := labelWidth(len("Balances"), status.Accounts, func(a application.StatusAccount) string { return a.Label })
	for _, account := range status.Accounts {
		amount := formatAmount(status.Currency, account.Amount)
		if account.Unlimited {
			amount = "unlimited"
		}
		line := lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.account.Render(pad(account.Label, width)),
			" ",
			s.amount.Render(amount),
		)
		if account.Transferable {
			line += " " + s.empty.Render("(can send)")
		}
		parts = append(parts, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderPlayers(status application.LobbyStatus, lineWidth int, s styles) string {
	parts := []string{s.heading.Render("Players")}
	if len(status.Players) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, append(parts, s.empty.Render("Nobody has joined yet."))...)
	}

	var richest int64
	for _, player := range status.Players {
		richest = max(richest, player.Balance)
	}

	width := labelWidth(0, status.Players, func(p application.StatusPlayer) string { return p.Name })
	bar := barWidth(lineWidth, width)
	for _, player := range status.Players {
		name := s.player.Render(pad(player.Name, width))
		if player.You {
			name = s.you.Render(pad(player.Name, width))
		}

		line := lipgloss.JoinHorizontal(
			lipgloss.Top,
			name,
			" ",
			renderBalanceBar(player.Balance, richest, bar, s),
			" ",
			s.amount.Render(formatAmount(status.Currency, player.Balance)),
		)
		if player.Banker {
			line += " " + s.badge.Render("[banker]")
		}
		parts = append(parts, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderEvents(status application.LobbyStatus, opts RenderOptions, s styles) string {
	parts := []string{s.heading.Render("Events")}
	events := status.Events
	if opts.EventLimit > 0 && len(events) > opts.EventLimit {
		events = events[:opts.EventLimit]
	}
	if len(events) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, append(parts, s.empty.Render("No events yet."))...)
	}

	for _, event := range events {
		parts = append(parts, lipgloss.JoinHorizontal(
			lipgloss.Top,
			s.eventTime.Render(formatEventTime(event.Time, opts.Now)),
			" ",
			s.detail.Render(event.Text),
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// barWidth fits the balance bars to a terminal of lineWidth columns.
func barWidth(lineWidth, nameWidth int) int {
	if lineWidth <= 0 {
		return balanceBarWidth
	}
	return min(balanceBarWidth, max(minBalanceBarWidth, lineWidth-nameWidth-playerLineChrome))
}

func renderBalanceBar(balance, richest int64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := 0
	if richest > 0 && balance > 0 {
		filled = int(math.Round(float64(width) * float64(balance) / float64(richest)))
	}
	filled = min(max(filled, 0), width)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func formatAmount(currency domain.Currency, amount int64) string {
	if currency == "" {
		currency = domain.CurrencyDollars
	}
	if amount < 0 {
		return fmt.Sprintf("-%s%d", currency, -amount)
	}
	return fmt.Sprintf("%s%d", currency, amount)
}

func formatEventTime(at, now time.Time) string {
	if at.IsZero() {
		return "--:--"
	}
	if now.IsZero() {
		return at.Format("15:04")
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := at.In(now.Location()).Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return at.In(now.Location()).Format("15:04")
	}
	return at.In(now.Location()).Format("02 Jan 15:04")
}

func formatExpiry(expires, now time.Time) string {
	if now.IsZero() {
		return "expires " + expires.Format("15:04 on 02 Jan")
	}
	if !expires.After(now) {
		return "expired"
	}

	remaining := expires.Sub(now)
	if remaining < time.Hour {
		minutes := max(int(math.Ceil(remaining.Minutes())), 1)
		return fmt.Sprintf("expires in %d %s", minutes, plural(minutes, "minute"))
	}

	hours := int(math.Ceil(remaining.Hours()))
	return fmt.Sprintf("expires in %d %s", hours, plural(hours, "hour"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

func labelWidth[T any](minWidth int, items []T, label func(T) string) int {
	width := minWidth
	for _, item := range items {
		width = max(width, lipgloss.Width(label(item)))
	}
	return width
}

func pad(text string, width int) string {
	if gap := width - lipgloss.Width(text); gap > 0 {
		return text + strings.Repeat(" ", gap)
	}
	return text
}
