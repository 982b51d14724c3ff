package store

import "github.com/bnema/lobbyopoly-cli/internal/domain"

// State is an immutable snapshot. Reduce always returns a new value and
// never writes through the slices or pointers of its input, so snapshots
// handed to subscribers stay valid. Readers must not mutate them either.
type State struct {
	LoadingCount  int
	LobbyID       domain.ObjectID
	PlayerID      domain.ObjectID
	Preflight     *domain.Preflight
	Lobby         *domain.Lobby
	Events        []domain.Event
	CurrentPlayer *domain.Player

	// Epoch changes on every reset and lobby switch.
	Epoch uint64
	// LobbySeq is the sequence number of the applied lobby snapshot.
	LobbySeq uint64
}

func (s State) Loading() bool {
	return s.LoadingCount > 0
}

func (s State) InLobby() bool {
	return s.LobbyID != "" && s.PlayerID != ""
}

// Removed reports a snapshot that no longer lists the held player, or a
// lobby that was disbanded.
func (s State) Removed() bool {
	if !s.InLobby() || s.Lobby == nil {
		return false
	}
	return s.Lobby.Disbanded || s.CurrentPlayer == nil
}

func currentPlayer(lobby *domain.Lobby, playerID domain.ObjectID) *domain.Player {
	if lobby == nil {
		return nil
	}
	player, ok := lobby.Player(playerID)
	if !ok {
		return nil
	}
	return &player
}
