package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/bnema/lobbyopoly-cli/internal/ports"
	"github.com/bnema/lobbyopoly-cli/internal/store"
	"github.com/bnema/lobbyopoly-cli/internal/view"
	"go.uber.org/zap"
)

const (
	preflightPath = "/api/preflight"
	createPath    = "/api/create"
	joinPath      = "/api/join"
	leavePath     = "/api/leave"
	disbandPath   = "/api/disband"
	transferPath  = "/api/transfer"
	kickPath      = "/api/kick"
	promotePath   = "/api/promote"
)

// StateStore is the store surface the session dispatches into.
type StateStore interface {
	State() store.State
	Epoch() uint64
	Dispatch(actions ...store.Action)
	DispatchAt(epoch uint64, actions ...store.Action) bool
}

// Session turns user intents into backend requests. Each intent issues one
// request inside a loading bracket and applies its store update on success.
type Session struct {
	transport ports.Transport
	store     StateStore
	logger    *zap.Logger
}

func NewSession(transport ports.Transport, st StateStore, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		transport: transport,
		store:     st,
		logger:    logger,
	}
}

// Bootstrap fetches the preflight data. Its failure is fatal for a client:
// nothing can be rendered without the bundle map.
func (s *Session) Bootstrap(ctx context.Context) (domain.Preflight, error) {
	defer s.bracket()()

	preflight, err := ports.Call[domain.Preflight](ctx, s.transport, http.MethodGet, preflightPath, nil)
	if err != nil {
		return domain.Preflight{}, fmt.Errorf("fetch preflight: %w", err)
	}

	s.store.Dispatch(store.FromPreflight(preflight))
	return preflight, nil
}

// CreateLobby returns the join code of the new lobby.
func (s *Session) CreateLobby(ctx context.Context, opts domain.LobbyOptions) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", fmt.Errorf("validate lobby options: %w", err)
	}

	defer s.bracket()()

	resp, err := ports.Call[domain.CreateLobbyResponse](ctx, s.transport, http.MethodPost, createPath, opts)
	if err != nil {
		return "", fmt.Errorf("create lobby: %w", err)
	}
	return resp.Code, nil
}

func (s *Session) Join(ctx context.Context, cmd JoinCommand) (domain.JoinResponse, error) {
	req := cmd.request()
	if err := req.Validate(); err != nil {
		return domain.JoinResponse{}, fmt.Errorf("validate join: %w", err)
	}

	defer s.bracket()()
	epoch := s.store.Epoch()

	resp, err := ports.Call[domain.JoinResponse](ctx, s.transport, http.MethodPost, joinPath, req)
	if err != nil {
		return domain.JoinResponse{}, fmt.Errorf("join lobby: %w", err)
	}

	if !s.store.DispatchAt(epoch, store.Identity(resp.Lobby, resp.Player)) {
		s.logger.Warn("join response arrived after the session changed", zap.String("lobby", resp.Lobby.String()))
	}
	return resp, nil
}

// CreateAndJoin creates a lobby and joins it as its first player, which
// makes that player the banker.
func (s *Session) CreateAndJoin(ctx context.Context, cmd CreateLobbyCommand) (domain.JoinResponse, error) {
	code, err := s.CreateLobby(ctx, cmd.Options)
	if err != nil {
		return domain.JoinResponse{}, err
	}

	return s.Join(ctx, JoinCommand{Code: code, Name: cmd.Name})
}

func (s *Session) Leave(ctx context.Context) error {
	return s.exit(ctx, leavePath, "leave lobby")
}

func (s *Session) Disband(ctx context.Context) error {
	return s.exit(ctx, disbandPath, "disband lobby")
}

// Transfer sends money and leaves the balances alone: the next snapshot
// carries the new figures.
func (s *Session) Transfer(ctx context.Context, cmd TransferCommand) error {
	state := s.store.State()
	if !state.InLobby() {
		return domain.ErrNotInLobby
	}
	if cmd.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if !view.CanTransferFrom(state, cmd.Source) {
		return domain.ErrNotPermitted
	}

	defer s.bracket()()

	if _, err := s.transport.Request(ctx, http.MethodPost, transferPath, cmd.request()); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}

func (s *Session) Kick(ctx context.Context, player domain.ObjectID) error {
	return s.playerAction(ctx, kickPath, "kick player", player)
}

// Promote hands banker duties to player.
func (s *Session) Promote(ctx context.Context, player domain.ObjectID) error {
	return s.playerAction(ctx, promotePath, "promote player", player)
}

func (s *Session) playerAction(ctx context.Context, path, verb string, player domain.ObjectID) error {
	if !s.store.State().InLobby() {
		return domain.ErrNotInLobby
	}

	defer s.bracket()()

	if _, err := s.transport.Request(ctx, http.MethodPost, path, domain.PlayerRequest{Player: player}); err != nil {
		return fmt.Errorf("%s: %w", verb, err)
	}
	return nil
}

func (s *Session) exit(ctx context.Context, path, verb string) error {
	if !s.store.State().InLobby() {
		return domain.ErrNotInLobby
	}

	defer s.bracket()()
	epoch := s.store.Epoch()

	if _, err := ports.Call[json.RawMessage](ctx, s.transport, http.MethodGet, path, nil); err != nil {
		return fmt.Errorf("%s: %w", verb, err)
	}

	s.store.DispatchAt(epoch, store.Reset{})
	return nil
}

// bracket marks a request in flight. The returned func always ends it.
func (s *Session) bracket() func() {
	s.store.Dispatch(store.LoadingStart{})
	return func() {
		s.store.Dispatch(store.LoadingStop{})
	}
}
