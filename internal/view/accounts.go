// Package view derives everything a screen shows from one store snapshot.
// Every function is pure and cheap, so callers recompute on each state
// change instead of caching.
package view

import (
	"fmt"
	"math"
	"strings"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/store"
)

type AccountKind string

const (
	AccountSelf        AccountKind = "self"
	AccountBank        AccountKind = "bank"
	AccountFreeParking AccountKind = "free_parking"
	AccountPlayer      AccountKind = "player"
)

const (
	bankLabel        = "The Bank"
	freeParkingLabel = "Free Parking"
	selfLabel        = "You"
)

// Account is a money box or a transfer target. ID is what the backend
// expects in a transfer request: a sentinel for self, bank and free parking,
// the player id otherwise.
type Account struct {
	Kind         AccountKind
	ID           string
	Label        string
	Amount       int64
	Unlimited    bool
	Transferable bool
}

type QuickAmount struct {
	Label  string
	Amount int64
}

func IsBanker(s store.State) bool {
	if s.Lobby == nil || s.CurrentPlayer == nil {
		return false
	}
	return s.CurrentPlayer.ID == s.Lobby.Banker
}

// Balances lists the player's own box, the bank and, when enabled, free
// parking.
func Balances(s store.State) []Account {
	if s.Lobby == nil {
		return nil
	}

	entities := s.Preflight.Entities()
	banker := IsBanker(s)
	accounts := make([]Account, 0, 3)

	if s.CurrentPlayer != nil {
		accounts = append(accounts, Account{
			Kind:         AccountSelf,
			ID:           entities.Self,
			Label:        selfLabel,
			Amount:       s.CurrentPlayer.Balance,
			Transferable: true,
		})
	}

	bank := Account{
		Kind:         AccountBank,
		ID:           entities.Bank,
		Label:        bankLabel,
		Transferable: banker,
	}
	if s.Lobby.Options.UnlimitedBank {
		bank.Unlimited = true
	} else {
		bank.Amount = s.Lobby.Bank
	}
	accounts = append(accounts, bank)

	if s.Lobby.Options.FreeParking {
		accounts = append(accounts, Account{
			Kind:         AccountFreeParking,
			ID:           entities.FreeParking,
			Label:        freeParkingLabel,
			Amount:       s.Lobby.FreeParking,
			Transferable: banker,
		})
	}

	return accounts
}

func CanTransferFrom(s store.State, source string) bool {
	if s.Lobby == nil || s.CurrentPlayer == nil {
		return false
	}

	entities := s.Preflight.Entities()
	switch source {
	case entities.Self:
		return true
	case entities.Bank:
		return IsBanker(s)
	case entities.FreeParking:
		return IsBanker(s) && s.Lobby.Options.FreeParking
	default:
		return false
	}
}

// TransferTargets lists where money from source may go: the bank, free
// parking when enabled, then the players. The source never targets itself.
// The acting player is only excluded when paying out of their own box.
func TransferTargets(s store.State, source string) []Account {
	if s.Lobby == nil {
		return nil
	}

	entities := s.Preflight.Entities()
	nonPlayerSource := source == entities.Bank || source == entities.FreeParking
	targets := make([]Account, 0, len(s.Lobby.Players)+2)

	if source != entities.Bank {
		targets = append(targets, Account{Kind: AccountBank, ID: entities.Bank, Label: bankLabel})
	}
	if source != entities.FreeParking && s.Lobby.Options.FreeParking {
		targets = append(targets, Account{Kind: AccountFreeParking, ID: entities.FreeParking, Label: freeParkingLabel})
	}

	for _, player := range s.Lobby.Players {
		if player.ID == s.PlayerID && !nonPlayerSource {
			continue
		}
		targets = append(targets, Account{
			Kind:   AccountPlayer,
			ID:     player.ID.String(),
			Label:  player.Name,
			Amount: player.Balance,
		})
	}

	return targets
}

// SourceBalance reports what source holds. It is false for an unlimited
// bank and for unknown sources.
func SourceBalance(s store.State, source string) (int64, bool) {
	if s.Lobby == nil {
		return 0, false
	}

	entities := s.Preflight.Entities()
	switch source {
	case entities.Self:
		if s.CurrentPlayer == nil {
			return 0, false
		}
		return s.CurrentPlayer.Balance, true
	case entities.Bank:
		if s.Lobby.Options.UnlimitedBank {
			return 0, false
		}
		return s.Lobby.Bank, true
	case entities.FreeParking:
		return s.Lobby.FreeParking, true
	default:
		return 0, false
	}
}

// QuickAmounts offers a tenth of the source balance and all of it.
func QuickAmounts(s store.State, source string) []QuickAmount {
	balance, ok := SourceBalance(s, source)
	if !ok {
		return nil
	}

	return []QuickAmount{
		{Label: "10%", Amount: int64(math.Floor(float64(balance)/10 + 0.5))},
		{Label: "ALL", Amount: balance},
	}
}

// ResolveSource maps a user-facing source name to its sentinel.
func ResolveSource(s store.State, query string) (string, error) {
	entities := s.Preflight.Entities()

	switch normalizeQuery(query) {
	case "self", "me", "you", normalizeQuery(entities.Self):
		return entities.Self, nil
	case "bank", "thebank", normalizeQuery(entities.Bank):
		return entities.Bank, nil
	case "fp", "freeparking", normalizeQuery(entities.FreeParking):
		return entities.FreeParking, nil
	default:
		return "", fmt.Errorf("%w: unknown source %q", domain.ErrUnknownTarget, query)
	}
}

// ResolveTarget finds a transfer target for source by sentinel, alias,
// player id or player name.
func ResolveTarget(s store.State, source, query string) (Account, error) {
	targets := TransferTargets(s, source)
	wanted := normalizeQuery(query)
	if wanted == "" {
		return Account{}, fmt.Errorf("%w: empty target", domain.ErrUnknownTarget)
	}

	for _, target := range targets {
		switch target.Kind {
		case AccountBank:
			if wanted == "bank" || wanted == "thebank" || wanted == normalizeQuery(target.ID) {
				return target, nil
			}
		case AccountFreeParking:
			if wanted == "fp" || wanted == "freeparking" || wanted == normalizeQuery(target.ID) {
				return target, nil
			}
		case AccountPlayer:
			if target.ID == strings.TrimSpace(query) {
				return target, nil
			}
		}
	}

	var matches []Account
	for _, target := range targets {
		if target.Kind == AccountPlayer && strings.EqualFold(strings.TrimSpace(target.Label), strings.TrimSpace(query)) {
			matches = append(matches, target)
		}
	}

	switch len(matches) {
	case 0:
		return Account{}, fmt.Errorf("%w: %q", domain.ErrUnknownTarget, query)
	case 1:
		return matches[0], nil
	default:
		return Account{}, fmt.Errorf("%w: %q matches %d players, use the player id", domain.ErrUnknownTarget, query, len(matches))
	}
}

// ResolvePlayer finds a lobby member by id or name.
func ResolvePlayer(s store.State, query string) (domain.Player, error) {
	if s.Lobby == nil {
		return domain.Player{}, domain.ErrNotInLobby
	}

	trimmed := strings.TrimSpace(query)
	if player, ok := s.Lobby.Player(domain.ObjectID(trimmed)); ok {
		return player, nil
	}

	var matches []domain.Player
	for _, player := range s.Lobby.Players {
		if strings.EqualFold(player.Name, trimmed) {
			matches = append(matches, player)
		}
	}

	switch len(matches) {
	case 0:
		return domain.Player{}, fmt.Errorf("%w: no player %q", domain.ErrUnknownTarget, query)
	case 1:
		return matches[0], nil
	default:
		return domain.Player{}, fmt.Errorf("%w: %q matches %d players, use the player id", domain.ErrUnknownTarget, query, len(matches))
	}
}

func normalizeQuery(query string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(query)))
}
