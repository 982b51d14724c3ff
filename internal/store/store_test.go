package store

import (
	"sync"
	"testing"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStoreDispatchAtDropsActionsFromOldEpoch(t *testing.T) {
	s := New(nil)
	s.Dispatch(Identity("l1", "p1"))
	epoch := s.Epoch()

	s.Dispatch(Reset{})
	applied := s.DispatchAt(epoch, UpdateLobby{Lobby: sampleLobby()})

	assert.False(t, applied)
	assert.Nil(t, s.State().Lobby)

	applied = s.DispatchAt(s.Epoch(), UpdateLobby{Lobby: sampleLobby()})
	assert.True(t, applied)
	assert.NotNil(t, s.State().Lobby)
}

func TestStoreLogsUnbalancedLoadingStop(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s := New(zap.New(core))

	s.Dispatch(LoadingStop{})

	assert.False(t, s.State().Loading())
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "loading stop")
}

func TestStoreSubscribeDeliversLatestState(t *testing.T) {
	s := New(nil)
	updates, cancel := s.Subscribe()
	defer cancel()

	initial := <-updates
	assert.False(t, initial.Loading())

	s.Dispatch(LoadingStart{})
	s.Dispatch(AddEvents{Events: []domain.Event{event("e1")}})

	latest := <-updates
	assert.True(t, latest.Loading())
	assert.Len(t, latest.Events, 1)

	select {
	case extra := <-updates:
		t.Fatalf("unexpected extra snapshot: %+v", extra)
	default:
	}
}

func TestStoreUnsubscribeClosesChannel(t *testing.T) {
	s := New(nil)
	updates, cancel := s.Subscribe()
	<-updates

	cancel()
	cancel()
	s.Dispatch(LoadingStart{})

	_, ok := <-updates
	assert.False(t, ok)
}

func TestStoreConcurrentDispatchIsSerialized(t *testing.T) {
	s := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Dispatch(LoadingStart{}, AddEvents{Events: []domain.Event{event("e")}})
			s.Dispatch(LoadingStop{})
		}()
	}
	wg.Wait()

	state := s.State()
	assert.False(t, state.Loading())
	assert.Len(t, state.Events, 50)
}

func TestStoreNextSeqIsMonotonic(t *testing.T) {
	s := New(nil)

	first := s.NextSeq()
	second := s.NextSeq()

	assert.Less(t, first, second)
}
