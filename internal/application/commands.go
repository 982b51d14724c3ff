package application

import (
	"strings"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
)

type CreateLobbyCommand struct {
	Options domain.LobbyOptions
	// Name joins the new lobby under this display name when set.
	Name string
}

type JoinCommand struct {
	Code string
	Name string
}

func (c JoinCommand) request() domain.JoinRequest {
	return domain.JoinRequest{Code: c.Code, Name: c.Name}.Normalize()
}

// TransferCommand moves Amount from Source to Destination. Source is a
// transfer sentinel; Destination a sentinel or a player id.
type TransferCommand struct {
	Source      string
	Destination string
	Amount      int64
}

func (c TransferCommand) request() domain.TransferRequest {
	return domain.TransferRequest{
		Source:      strings.TrimSpace(c.Source),
		Destination: strings.TrimSpace(c.Destination),
		Amount:      c.Amount,
	}
}
