package application

import (
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/store"
	"github.com/bnema/lobbyopoly-cli/internal/view"
)

type StatusAccount struct {
	Kind         view.AccountKind `json:"kind"`
	ID           string           `json:"id"`
	Label        string           `json:"label"`
	Amount       int64            `json:"amount"`
	Unlimited    bool             `json:"unlimited,omitempty"`
	Transferable bool             `json:"transferable"`
}

type StatusPlayer struct {
	ID      domain.ObjectID `json:"id"`
	Name    string          `json:"name"`
	Balance int64           `json:"balance"`
	Banker  bool            `json:"banker,omitempty"`
	You     bool            `json:"you,omitempty"`
}

type StatusEvent struct {
	ID   domain.ObjectID `json:"id"`
	Time time.Time       `json:"time"`
	Key  string          `json:"key"`
	Text string          `json:"text"`
}

// LobbyStatus is the flattened read model shared by the renderer and the
// JSON output.
type LobbyStatus struct {
	Code      string          `json:"code"`
	LobbyID   domain.ObjectID `json:"lobbyId"`
	PlayerID  domain.ObjectID `json:"playerId"`
	You       string          `json:"you"`
	Banker    bool            `json:"banker"`
	Currency  domain.Currency `json:"currency"`
	Expires   time.Time       `json:"expires,omitzero"`
	Disbanded bool            `json:"disbanded,omitempty"`
	Loading   bool            `json:"-"`
	Accounts  []StatusAccount `json:"accounts"`
	Players   []StatusPlayer  `json:"players"`
	Events    []StatusEvent   `json:"events"`
}

// BuildStatus reports false when the state holds no lobby snapshot.
func BuildStatus(s store.State, eventLimit int) (LobbyStatus, bool) {
	if s.Lobby == nil {
		return LobbyStatus{}, false
	}

	status := LobbyStatus{
		Code:      s.Lobby.Code,
		LobbyID:   s.LobbyID,
		PlayerID:  s.PlayerID,
		Banker:    view.IsBanker(s),
		Currency:  s.Lobby.Options.Currency,
		Expires:   s.Lobby.Expires.Time,
		Disbanded: s.Lobby.Disbanded,
		Loading:   s.Loading(),
	}
	if status.Currency == "" {
		status.Currency = domain.CurrencyDollars
	}
	if s.CurrentPlayer != nil {
		status.You = s.CurrentPlayer.Name
	}

	for _, account := range view.Balances(s) {
		status.Accounts = append(status.Accounts, StatusAccount(account))
	}

	for _, player := range s.Lobby.Players {
		status.Players = append(status.Players, StatusPlayer{
			ID:      player.ID,
			Name:    player.Name,
			Balance: player.Balance,
			Banker:  player.ID == s.Lobby.Banker,
			You:     player.ID == s.PlayerID,
		})
	}

	status.Events = Events(s, eventLimit)
	return status, true
}

// Events returns at most limit formatted events, newest first. A limit of
// zero or less returns all of them.
func Events(s store.State, limit int) []StatusEvent {
	lines := view.EventLog(s)
	if limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}

	events := make([]StatusEvent, 0, len(lines))
	for _, line := range lines {
		events = append(events, StatusEvent{
			ID:   line.ID,
			Time: line.Time,
			Key:  line.Key,
			Text: line.Text,
		})
	}
	return events
}
