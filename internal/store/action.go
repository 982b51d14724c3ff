package store

import "github.com/bnema/lobbyopoly-cli/internal/domain"

// Action is the closed set of mutations Reduce understands.
type Action interface {
	isAction()
}

// Reset returns to the logged-out state. Preflight survives, and so does
// the loading counter since the requests it counts are still in flight.
type Reset struct{}

// Patch holds the state fields UpdateState may set. Nil fields are left
// untouched.
type Patch struct {
	LobbyID   *domain.ObjectID
	PlayerID  *domain.ObjectID
	Preflight *domain.Preflight
}

type UpdateState struct {
	Patch Patch
}

type LoadingStart struct{}

type LoadingStop struct{}

// UpdateLobby installs a full lobby snapshot. Seq orders snapshots taken by
// concurrent requests; zero means unordered.
type UpdateLobby struct {
	Lobby domain.Lobby
	Seq   uint64
}

type AddEvents struct {
	Events []domain.Event
}

type ReplaceEvents struct {
	Events []domain.Event
}

func (Reset) isAction()         {}
func (UpdateState) isAction()   {}
func (LoadingStart) isAction()  {}
func (LoadingStop) isAction()   {}
func (UpdateLobby) isAction()   {}
func (AddEvents) isAction()     {}
func (ReplaceEvents) isAction() {}

// Identity patches lobby and player ids in one step.
func Identity(lobbyID, playerID domain.ObjectID) UpdateState {
	return UpdateState{Patch: Patch{LobbyID: &lobbyID, PlayerID: &playerID}}
}

// FromPreflight mirrors a preflight response into the state.
func FromPreflight(p domain.Preflight) UpdateState {
	lobbyID := p.LobbyID
	playerID := p.PlayerID
	return UpdateState{Patch: Patch{
		LobbyID:   &lobbyID,
		PlayerID:  &playerID,
		Preflight: &p,
	}}
}
