package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/ports"
	"github.com/bnema/lobbyopoly-cli/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval = 2 * time.Second
	MinPollInterval     = time.Second
	MaxPollInterval     = 3 * time.Second

	pollPath   = "/api/poll"
	eventsPath = "/api/events"
)

// ErrLobbyGone is returned by Once when the backend refused the poll, which
// means the lobby closed or the player was removed. The store has been reset.
var ErrLobbyGone = errors.New("lobby is gone")

// errSuperseded stops a strategy whose session epoch is no longer current.
var errSuperseded = errors.New("session superseded")

// Poller is the pull strategy: periodic snapshots, and a full event list
// refetch whenever the backend's event hash changes.
type Poller struct {
	transport ports.Transport
	interval  time.Duration
	ledger    *Ledger
	logger    *zap.Logger
}

func NewPoller(transport ports.Transport, interval time.Duration, ledger *Ledger, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if ledger == nil {
		ledger = NewLedger()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Poller{
		transport: transport,
		interval:  ClampPollInterval(interval),
		ledger:    ledger,
		logger:    logger,
	}
}

func ClampPollInterval(interval time.Duration) time.Duration {
	switch {
	case interval < MinPollInterval:
		return MinPollInterval
	case interval > MaxPollInterval:
		return MaxPollInterval
	default:
		return interval
	}
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// pollCursor is the per-run memory of the last event hash applied.
type pollCursor struct {
	hash    string
	hasHash bool
}

func (p *Poller) Once(ctx context.Context, lobbyID domain.ObjectID, sink Sink) error {
	var cursor pollCursor
	err := p.tick(ctx, lobbyID, sink, sink.Epoch(), &cursor)
	if errors.Is(err, errSuperseded) {
		return nil
	}
	return err
}

func (p *Poller) Run(ctx context.Context, lobbyID domain.ObjectID, sink Sink) error {
	epoch := sink.Epoch()
	var cursor pollCursor

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		err := p.tick(ctx, lobbyID, sink, epoch, &cursor)
		switch {
		case errors.Is(err, ErrLobbyGone), errors.Is(err, errSuperseded):
			return nil
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			p.logger.Warn("poll failed, retrying",
				zap.String("lobby", lobbyID.String()),
				zap.Duration("interval", p.interval),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Poller) tick(ctx context.Context, lobbyID domain.ObjectID, sink Sink, epoch uint64, cursor *pollCursor) error {
	seq := sink.NextSeq()
	payload, err := ports.Call[domain.PollPayload](ctx, p.transport, http.MethodGet, pollPath, nil)
	if err != nil {
		if code, ok := domain.ServerCode(err); ok {
			p.logger.Info("poll rejected, leaving lobby",
				zap.String("lobby", lobbyID.String()),
				zap.String("code", code),
			)
			sink.DispatchAt(epoch, store.Reset{})
			return fmt.Errorf("%w: %s", ErrLobbyGone, code)
		}
		return fmt.Errorf("poll lobby: %w", err)
	}

	if removed(payload.Lobby, sink.State().PlayerID) {
		p.logger.Info("removed from lobby", zap.String("lobby", lobbyID.String()), zap.Bool("lobby_closed", payload.Lobby.Disbanded))
		if !sink.DispatchAt(epoch, store.Reset{}) {
			return errSuperseded
		}
		return fmt.Errorf("%w: no longer a member", ErrLobbyGone)
	}

	if !sink.DispatchAt(epoch, store.UpdateLobby{Lobby: payload.Lobby, Seq: seq}) {
		return errSuperseded
	}

	if cursor.hasHash && cursor.hash == payload.EventHash {
		return nil
	}

	events, err := ports.Call[[]domain.Event](ctx, p.transport, http.MethodGet, eventsPath, nil)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}

	if !sink.DispatchAt(epoch, store.ReplaceEvents{Events: events}) {
		return errSuperseded
	}
	p.ledger.Replace(events)
	cursor.hash = payload.EventHash
	cursor.hasHash = true

	p.logger.Debug("event log replaced",
		zap.String("lobby", lobbyID.String()),
		zap.String("hash", payload.EventHash),
		zap.Int("events", len(events)),
	)
	return nil
}
