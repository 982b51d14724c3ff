package reconcile

import (
	"context"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/store"
)

// Sink is the part of the store a strategy writes to.
type Sink interface {
	State() store.State
	Epoch() uint64
	NextSeq() uint64
	Dispatch(actions ...store.Action)
	DispatchAt(epoch uint64, actions ...store.Action) bool
}

// Strategy keeps the store's lobby snapshot and event list in step with the
// backend for one lobby.
type Strategy interface {
	// Run blocks until ctx is done or the player is no longer in the lobby.
	Run(ctx context.Context, lobbyID domain.ObjectID, sink Sink) error
	// Once performs a single synchronization pass.
	Once(ctx context.Context, lobbyID domain.ObjectID, sink Sink) error
}

// removed reports whether snapshot shows the player out of the lobby: the
// lobby was disbanded or its roster no longer lists them.
func removed(snapshot domain.Lobby, playerID domain.ObjectID) bool {
	if snapshot.Disbanded {
		return true
	}
	if playerID == "" {
		return false
	}
	_, ok := snapshot.Player(playerID)
	return !ok
}

var (
	_ Sink     = (*store.Store)(nil)
	_ Strategy = (*Poller)(nil)
	_ Strategy = (*Stream)(nil)
)
