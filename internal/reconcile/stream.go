package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/ports"
	"github.com/bnema/lobbyopoly-cli/internal/store"
	"go.uber.org/zap"
)

var errSubscriptionClosed = errors.New("subscription closed before the first lobby update")

// Stream is the push strategy. Each message carries a full lobby snapshot
// and an event batch; only events the ledger has not seen are appended.
type Stream struct {
	subscriber ports.Subscriber
	ledger     *Ledger
	logger     *zap.Logger
}

func NewStream(subscriber ports.Subscriber, ledger *Ledger, logger *zap.Logger) *Stream {
	if ledger == nil {
		ledger = NewLedger()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Stream{subscriber: subscriber, ledger: ledger, logger: logger}
}

func (s *Stream) Run(ctx context.Context, lobbyID domain.ObjectID, sink Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	epoch := sink.Epoch()
	for msg := range s.subscriber.Subscribe(ctx, lobbyID) {
		if !s.apply(lobbyID, sink, epoch, msg) {
			return nil
		}
	}
	return nil
}

// Once waits for the first lobby update, applies it and disconnects.
func (s *Stream) Once(ctx context.Context, lobbyID domain.ObjectID, sink Sink) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	epoch := sink.Epoch()
	for msg := range s.subscriber.Subscribe(ctx, lobbyID) {
		if !s.apply(lobbyID, sink, epoch, msg) {
			return nil
		}
		if _, ok := msg.(ports.LobbyUpdate); ok {
			return nil
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait for lobby update: %w", err)
	}
	return errSubscriptionClosed
}

// apply reports whether the stream should keep going.
func (s *Stream) apply(lobbyID domain.ObjectID, sink Sink, epoch uint64, msg ports.PushMessage) bool {
	switch m := msg.(type) {
	case ports.Connected:
		s.ledger.Reset()
		return sink.DispatchAt(epoch, store.ReplaceEvents{})

	case ports.LobbyUpdate:
		if removed(m.Lobby, sink.State().PlayerID) {
			s.logger.Info("removed from lobby", zap.String("lobby", lobbyID.String()), zap.Bool("lobby_closed", m.Lobby.Disbanded))
			sink.DispatchAt(epoch, store.Reset{})
			return false
		}
		actions := []store.Action{store.UpdateLobby{Lobby: m.Lobby, Seq: sink.NextSeq()}}
		if fresh := s.ledger.Fresh(m.Events); len(fresh) > 0 {
			actions = append(actions, store.AddEvents{Events: fresh})
		}
		return sink.DispatchAt(epoch, actions...)

	case ports.Kicked:
		if m.PlayerID != nil && *m.PlayerID != sink.State().PlayerID {
			return true
		}
		s.logger.Info("removed from lobby", zap.String("lobby", lobbyID.String()), zap.Bool("lobby_closed", m.PlayerID == nil))
		sink.DispatchAt(epoch, store.Reset{})
		return false

	default:
		s.logger.Warn("ignoring unknown push message", zap.String("type", fmt.Sprintf("%T", msg)))
		return true
	}
}
