package reconcile

import (
	"context"
	"sync"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/store"
	"go.uber.org/zap"
)

// Runner keeps at most one strategy alive, bound to the current lobby and
// session epoch.
type Runner struct {
	strategy Strategy
	sink     Sink
	logger   *zap.Logger

	mu     sync.Mutex
	key    runKey
	cancel context.CancelFunc
	done   chan struct{}
}

type runKey struct {
	lobbyID domain.ObjectID
	epoch   uint64
}

func NewRunner(strategy Strategy, sink Sink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{strategy: strategy, sink: sink, logger: logger}
}

// Switch subscribes to lobbyID. An empty id tears down the active strategy;
// a different id replaces it. Switching to the lobby already followed is a
// no-op while its strategy is still running.
func (r *Runner) Switch(ctx context.Context, lobbyID domain.ObjectID) {
	r.switchTo(ctx, runKey{lobbyID: lobbyID, epoch: r.sink.Epoch()})
}

// Stop tears down the active strategy and waits for it to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
}

// Follow drives Switch from the store until ctx is done.
func (r *Runner) Follow(ctx context.Context, states <-chan store.State) error {
	defer r.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case state, ok := <-states:
			if !ok {
				return nil
			}
			var lobbyID domain.ObjectID
			if state.InLobby() {
				lobbyID = state.LobbyID
			}
			r.switchTo(ctx, runKey{lobbyID: lobbyID, epoch: state.Epoch})
		}
	}
}

func (r *Runner) switchTo(ctx context.Context, key runKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key == r.key && r.done != nil && !isClosed(r.done) {
		return
	}
	if key.lobbyID == "" && r.done == nil {
		r.key = key
		return
	}

	r.stopLocked()
	r.key = key
	if key.lobbyID == "" {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	r.logger.Debug("following lobby", zap.String("lobby", key.lobbyID.String()), zap.Uint64("epoch", key.epoch))
	go func() {
		defer close(done)
		if err := r.strategy.Run(runCtx, key.lobbyID, r.sink); err != nil {
			r.logger.Warn("lobby sync stopped", zap.String("lobby", key.lobbyID.String()), zap.Error(err))
		}
	}()
}

func (r *Runner) stopLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.done != nil {
		<-r.done
		r.done = nil
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
