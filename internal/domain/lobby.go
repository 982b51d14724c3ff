package domain

import (
	"fmt"
	"strings"
)

type Currency string

const (
	CurrencyDollars Currency = "$"
	CurrencyPounds  Currency = "£"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyDollars, CurrencyPounds:
		return true
	default:
		return false
	}
}

// LobbyOptions is the configuration a lobby is created with. The same shape
// is echoed back inside every lobby snapshot.
type LobbyOptions struct {
	UnlimitedBank   bool     `json:"unlimitedBank"`
	FreeParking     bool     `json:"freeParking"`
	MaxPlayers      int      `json:"maxPlayers"`
	BankBalance     int64    `json:"bankBalance"`
	StartingBalance int64    `json:"startingBalance"`
	Currency        Currency `json:"currency"`
}

// DefaultLobbyOptions mirrors the create form defaults. The boxed game ships
// with $15140 in the bank; lobbies default to a larger float.
func DefaultLobbyOptions() LobbyOptions {
	return LobbyOptions{
		UnlimitedBank:   false,
		FreeParking:     true,
		MaxPlayers:      8,
		BankBalance:     20580,
		StartingBalance: 1500,
		Currency:        CurrencyDollars,
	}
}

func (o LobbyOptions) Validate() error {
	if o.MaxPlayers <= 0 {
		return fmt.Errorf("max players must be positive")
	}
	if o.BankBalance < 0 {
		return fmt.Errorf("bank balance must not be negative")
	}
	if o.StartingBalance < 0 {
		return fmt.Errorf("starting balance must not be negative")
	}
	if !o.Currency.Valid() {
		return fmt.Errorf("unsupported currency %q", o.Currency)
	}

	return nil
}

type Player struct {
	ID      ObjectID `json:"_id"`
	Name    string   `json:"name"`
	Balance int64    `json:"balance"`
}

// Lobby is a complete server snapshot. It is always replaced wholesale.
type Lobby struct {
	ID          ObjectID     `json:"_id"`
	Code        string       `json:"code"`
	Created     Timestamp    `json:"created"`
	Expires     Timestamp    `json:"expires"`
	Disbanded   bool         `json:"disbanded"`
	Options     LobbyOptions `json:"options"`
	Bank        int64        `json:"bank"`
	FreeParking int64        `json:"freeParking"`
	Banker      ObjectID     `json:"banker"`
	Players     []Player     `json:"players"`
}

func (l Lobby) Player(id ObjectID) (Player, bool) {
	if id == "" {
		return Player{}, false
	}
	for _, player := range l.Players {
		if player.ID == id {
			return player, true
		}
	}
	return Player{}, false
}

// HasBanker reports whether the banker reference points at a current member.
func (l Lobby) HasBanker() bool {
	_, ok := l.Player(l.Banker)
	return ok
}

type CreateLobbyResponse struct {
	Code string `json:"code"`
}

type JoinRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (r JoinRequest) Normalize() JoinRequest {
	return JoinRequest{
		Code: strings.ToUpper(strings.TrimSpace(r.Code)),
		Name: strings.TrimSpace(r.Name),
	}
}

func (r JoinRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("lobby code is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("player name is required")
	}
	return nil
}

type JoinResponse struct {
	Lobby  ObjectID `json:"lobby"`
	Player ObjectID `json:"player"`
}

type TransferRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
}

type PlayerRequest struct {
	Player ObjectID `json:"player"`
}

// PollPayload is the polling-era snapshot: the lobby plus an opaque hash
// that changes whenever the event list changes.
type PollPayload struct {
	Lobby     Lobby  `json:"lobby"`
	EventHash string `json:"eventHash"`
}
