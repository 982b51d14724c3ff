package store

import (
	"testing"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLobby() domain.Lobby {
	return domain.Lobby{
		ID:     "l1",
		Code:   "ABCD",
		Banker: "p1",
		Bank:   20000,
		Options: domain.LobbyOptions{
			FreeParking: true,
			Currency:    domain.CurrencyDollars,
		},
		Players: []domain.Player{
			{ID: "p1", Name: "Ann", Balance: 1500},
			{ID: "p2", Name: "Bob", Balance: 1500},
		},
	}
}

func event(id string) domain.Event {
	return domain.Event{ID: domain.ObjectID(id), Key: "EVENT_PLY_JOIN"}
}

func TestAddEventsAppendsInOrder(t *testing.T) {
	s := Reduce(State{}, AddEvents{Events: []domain.Event{event("e1"), event("e2")}})
	before := s.Events

	s = Reduce(s, AddEvents{Events: []domain.Event{event("e3")}})

	require.Len(t, s.Events, 3)
	assert.Equal(t, before, s.Events[:2])
	assert.Equal(t, domain.ObjectID("e3"), s.Events[2].ID)
	assert.Len(t, before, 2)
}

func TestAddEventsDoesNotDeduplicate(t *testing.T) {
	s := Reduce(State{}, AddEvents{Events: []domain.Event{event("e1")}})
	s = Reduce(s, AddEvents{Events: []domain.Event{event("e1")}})

	assert.Len(t, s.Events, 2)
}

func TestReduceNeverMutatesInput(t *testing.T) {
	lobby := sampleLobby()
	s := Reduce(State{PlayerID: "p1"}, UpdateLobby{Lobby: lobby})
	s = Reduce(s, AddEvents{Events: []domain.Event{event("e1")}})
	frozenEvents := append([]domain.Event(nil), s.Events...)
	frozenBank := s.Lobby.Bank

	changed := sampleLobby()
	changed.Bank = 1
	_ = Reduce(s, UpdateLobby{Lobby: changed})
	_ = Reduce(s, ReplaceEvents{Events: []domain.Event{event("x")}})
	_ = Reduce(s, Reset{})

	assert.Equal(t, frozenEvents, s.Events)
	assert.Equal(t, frozenBank, s.Lobby.Bank)
}

func TestUpdateLobbyDerivesCurrentPlayer(t *testing.T) {
	s := Reduce(State{PlayerID: "p2"}, UpdateLobby{Lobby: sampleLobby()})

	require.NotNil(t, s.CurrentPlayer)
	assert.Equal(t, "Bob", s.CurrentPlayer.Name)

	again := Reduce(s, UpdateLobby{Lobby: sampleLobby()})
	assert.Equal(t, s, again)
}

func TestUpdateLobbyWithoutMatchingPlayer(t *testing.T) {
	s := Reduce(State{PlayerID: "p9"}, UpdateLobby{Lobby: sampleLobby()})

	assert.Nil(t, s.CurrentPlayer)
	require.NotNil(t, s.Lobby)
}

func TestUpdateLobbyDropsStaleSnapshot(t *testing.T) {
	fresh := sampleLobby()
	fresh.Bank = 100
	stale := sampleLobby()
	stale.Bank = 999

	s := Reduce(State{}, UpdateLobby{Lobby: fresh, Seq: 5})
	s = Reduce(s, UpdateLobby{Lobby: stale, Seq: 4})

	assert.Equal(t, int64(100), s.Lobby.Bank)
	assert.Equal(t, uint64(5), s.LobbySeq)

	s = Reduce(s, UpdateLobby{Lobby: stale})
	assert.Equal(t, int64(999), s.Lobby.Bank, "unordered snapshots always apply")
}

func TestUpdateStatePlayerChangeRecomputesCurrentPlayer(t *testing.T) {
	s := Reduce(State{PlayerID: "p1"}, UpdateLobby{Lobby: sampleLobby()})
	require.Equal(t, "Ann", s.CurrentPlayer.Name)

	player := domain.ObjectID("p2")
	s = Reduce(s, UpdateState{Patch: Patch{PlayerID: &player}})

	require.NotNil(t, s.CurrentPlayer)
	assert.Equal(t, "Bob", s.CurrentPlayer.Name)
}

func TestUpdateStateLobbyChangeBumpsEpoch(t *testing.T) {
	s := Reduce(State{}, Identity("l1", "p1"))
	assert.Equal(t, uint64(1), s.Epoch)

	s = Reduce(s, Identity("l1", "p1"))
	assert.Equal(t, uint64(1), s.Epoch)

	s = Reduce(s, Identity("l2", "p1"))
	assert.Equal(t, uint64(2), s.Epoch)
}

func TestUpdateStateLobbyChangeDropsPreviousLobby(t *testing.T) {
	s := Reduce(State{}, Identity("l1", "p1"))
	s = Reduce(s, UpdateLobby{Lobby: domain.Lobby{ID: "l1", Players: []domain.Player{{ID: "p1", Name: "Ann"}}}, Seq: 3})
	s = Reduce(s, AddEvents{Events: []domain.Event{{ID: "e1"}}})
	require.NotNil(t, s.CurrentPlayer)

	same := Reduce(s, Identity("l1", "p1"))
	assert.NotNil(t, same.Lobby)
	assert.Len(t, same.Events, 1)

	moved := Reduce(s, Identity("l2", "p2"))
	assert.Equal(t, domain.ObjectID("l2"), moved.LobbyID)
	assert.Nil(t, moved.Lobby)
	assert.Nil(t, moved.Events)
	assert.Nil(t, moved.CurrentPlayer)
	assert.Equal(t, uint64(3), moved.LobbySeq)
	assert.True(t, moved.InLobby())
}

func TestStateRemoved(t *testing.T) {
	s := Reduce(State{}, Identity("l1", "p1"))
	assert.False(t, s.Removed(), "no snapshot yet")

	s = Reduce(s, UpdateLobby{Lobby: domain.Lobby{ID: "l1", Players: []domain.Player{{ID: "p1"}}}})
	assert.False(t, s.Removed())

	disbanded := Reduce(s, UpdateLobby{Lobby: domain.Lobby{ID: "l1", Disbanded: true, Players: []domain.Player{{ID: "p1"}}}})
	assert.True(t, disbanded.Removed())

	kicked := Reduce(s, UpdateLobby{Lobby: domain.Lobby{ID: "l1", Players: []domain.Player{{ID: "p2"}}}})
	assert.True(t, kicked.Removed())

	assert.False(t, Reduce(kicked, Reset{}).Removed())
}

func TestFromPreflightSetsIdentity(t *testing.T) {
	s := Reduce(State{}, FromPreflight(domain.Preflight{
		BundleMap: map[string]string{"k": "v"},
		LobbyID:   "l1",
		PlayerID:  "p1",
	}))

	assert.Equal(t, domain.ObjectID("l1"), s.LobbyID)
	assert.Equal(t, domain.ObjectID("p1"), s.PlayerID)
	require.NotNil(t, s.Preflight)
	assert.True(t, s.InLobby())
}

func TestResetPreservesPreflight(t *testing.T) {
	preflight := domain.Preflight{BundleMap: map[string]string{"EVENT_PLY_JOIN": "{0} joined the game."}}
	s := Reduce(State{}, FromPreflight(preflight))
	s = Reduce(s, Identity("l1", "p1"))
	s = Reduce(s, UpdateLobby{Lobby: sampleLobby(), Seq: 3})
	s = Reduce(s, AddEvents{Events: []domain.Event{event("e1")}})
	s = Reduce(s, LoadingStart{})
	epoch := s.Epoch

	s = Reduce(s, Reset{})

	assert.Equal(t, &preflight, s.Preflight)
	assert.Nil(t, s.Lobby)
	assert.Nil(t, s.Events)
	assert.Nil(t, s.CurrentPlayer)
	assert.Empty(t, s.LobbyID)
	assert.Empty(t, s.PlayerID)
	assert.True(t, s.Loading(), "in-flight requests still stop their own bracket")
	assert.Equal(t, epoch+1, s.Epoch)
}

func TestLoadingCounterInterleavings(t *testing.T) {
	tests := []struct {
		name    string
		actions []Action
		want    bool
	}{
		{name: "balanced", actions: []Action{LoadingStart{}, LoadingStop{}}, want: false},
		{name: "overlapping", actions: []Action{LoadingStart{}, LoadingStart{}, LoadingStop{}}, want: true},
		{name: "overlapping settled", actions: []Action{LoadingStart{}, LoadingStart{}, LoadingStop{}, LoadingStop{}}, want: false},
		{name: "stop at zero ignored", actions: []Action{LoadingStop{}, LoadingStart{}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{}
			for _, action := range tt.actions {
				s = Reduce(s, action)
			}
			assert.Equal(t, tt.want, s.Loading())
			assert.GreaterOrEqual(t, s.LoadingCount, 0)
		})
	}
}

func TestReplaceEventsReplacesWholeList(t *testing.T) {
	s := Reduce(State{}, AddEvents{Events: []domain.Event{event("e1"), event("e2")}})
	s = Reduce(s, ReplaceEvents{Events: []domain.Event{event("e3")}})

	require.Len(t, s.Events, 1)
	assert.Equal(t, domain.ObjectID("e3"), s.Events[0].ID)

	s = Reduce(s, ReplaceEvents{})
	assert.Empty(t, s.Events)
}
