package fakebackend

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"strings"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	codeLength  = 4
	codeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ"
)

type lobbyRecord struct {
	lobby  domain.Lobby
	events []domain.Event
	subs   map[*subscriber]struct{}
	logger *zap.Logger
}

func newObjectID() domain.ObjectID {
	return domain.ObjectID(strings.ReplaceAll(uuid.NewString(), "-", "")[:24])
}

func (r *lobbyRecord) playerIndex(id domain.ObjectID) int {
	for i, player := range r.lobby.Players {
		if player.ID == id {
			return i
		}
	}
	return -1
}

// snapshot copies the lobby so it can be encoded outside the lock.
func (r *lobbyRecord) snapshot() domain.Lobby {
	lobby := r.lobby
	lobby.Players = append([]domain.Player{}, r.lobby.Players...)
	return lobby
}

func (r *lobbyRecord) eventHash() string {
	sum := sha256.New()
	for _, event := range r.events {
		sum.Write([]byte(event.ID))
	}
	return hex.EncodeToString(sum.Sum(nil))[:16]
}

func (r *lobbyRecord) record(now time.Time, key string, inserts ...domain.Insert) domain.Event {
	if inserts == nil {
		inserts = []domain.Insert{}
	}
	event := domain.Event{ID: newObjectID(), Time: domain.NewTimestamp(now), Key: key, Inserts: inserts}
	r.events = append(r.events, event)
	return event
}

// removePlayer returns the player's cash to the bank.
func (r *lobbyRecord) removePlayer(idx int) {
	player := r.lobby.Players[idx]
	if !r.lobby.Options.UnlimitedBank {
		r.lobby.Bank += player.Balance
	}
	r.lobby.Players = append(r.lobby.Players[:idx:idx], r.lobby.Players[idx+1:]...)
}

func (s *Server) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Server) newCode() string {
	for {
		var b strings.Builder
		for i := 0; i < codeLength; i++ {
			b.WriteByte(codeCharset[rand.Intn(len(codeCharset))])
		}
		if _, taken := s.codes[b.String()]; !taken {
			return b.String()
		}
		s.logger.Debug("lobby code collision, regenerating", zap.String("code", b.String()))
	}
}

// member resolves the lobby and player behind a session. Callers hold s.mu.
func (s *Server) member(sess *session) (*lobbyRecord, int, error) {
	if sess == nil || sess.lobbyID.IsZero() {
		return nil, -1, apiError(ErrSessionInvalid)
	}
	rec := s.lobbies[sess.lobbyID]
	if rec == nil {
		return nil, -1, apiError(ErrSessionInvalid)
	}
	if rec.lobby.Disbanded {
		return nil, -1, apiError(ErrLobbyInvalid)
	}
	if !rec.lobby.Expires.After(s.now()) {
		return nil, -1, apiError(ErrLobbyExpired)
	}
	idx := rec.playerIndex(sess.playerID)
	if idx < 0 {
		return nil, -1, apiError(ErrPlayerNotActive)
	}
	return rec, idx, nil
}

func (s *Server) banker(sess *session) (*lobbyRecord, int, error) {
	rec, idx, err := s.member(sess)
	if err != nil {
		return nil, -1, err
	}
	if rec.lobby.Banker != rec.lobby.Players[idx].ID {
		return nil, -1, apiError(ErrPlayerNotBanker)
	}
	return rec, idx, nil
}

func (s *Server) preflight(sess *session, _ []byte) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := domain.Preflight{
		BundleMap:         BundleMap(),
		TransferEntityMap: transferEntities(),
	}
	if rec, idx, err := s.member(sess); err == nil {
		out.LobbyID = rec.lobby.ID
		out.PlayerID = rec.lobby.Players[idx].ID
	}
	return out, nil
}

func (s *Server) create(_ *session, body []byte) (any, error) {
	opts := domain.DefaultLobbyOptions()
	if err := decodeBody(body, &opts); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, apiError(ErrLobbyInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	code := s.newCode()
	id := newObjectID()
	rec := &lobbyRecord{
		lobby: domain.Lobby{
			ID:      id,
			Code:    code,
			Created: domain.NewTimestamp(now),
			Expires: domain.NewTimestamp(now.Add(s.opts.LobbyTTL)),
			Options: opts,
			Bank:    opts.BankBalance,
			Players: []domain.Player{},
		},
		subs:   make(map[*subscriber]struct{}),
		logger: s.logger.With(zap.String("lobby", id.String())),
	}
	s.lobbies[rec.lobby.ID] = rec
	s.codes[code] = rec.lobby.ID

	s.logger.Info("lobby created", zap.String("code", code), zap.String("lobby", rec.lobby.ID.String()))
	return domain.CreateLobbyResponse{Code: code}, nil
}

func (s *Server) join(sess *session, body []byte) (any, error) {
	var req domain.JoinRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	req = req.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.codes[req.Code]
	if !ok {
		return nil, apiError(ErrLobbyCodeInvalid)
	}
	rec := s.lobbies[id]
	if rec.lobby.Disbanded {
		return nil, apiError(ErrLobbyCodeInvalid)
	}
	now := s.now()
	if !rec.lobby.Expires.After(now) {
		return nil, apiError(ErrLobbyExpired)
	}
	if req.Name == "" {
		return nil, apiError(ErrPlayerNameInvalid)
	}
	for _, player := range rec.lobby.Players {
		if strings.EqualFold(player.Name, req.Name) {
			return nil, apiError(ErrPlayerNameInvalid)
		}
	}
	if len(rec.lobby.Players) >= rec.lobby.Options.MaxPlayers {
		return nil, apiError(ErrLobbyFull)
	}

	grant := rec.lobby.Options.StartingBalance
	if !rec.lobby.Options.UnlimitedBank {
		grant = min(grant, rec.lobby.Bank)
		rec.lobby.Bank -= grant
	}
	player := domain.Player{ID: newObjectID(), Name: req.Name, Balance: grant}
	rec.lobby.Players = append(rec.lobby.Players, player)

	fresh := []domain.Event{
		rec.record(now, EventPlayerJoin, domain.PlayerInsert(player.ID)),
		rec.record(now, EventBankTransferStart, domain.CurrencyInsert(grant), domain.PlayerInsert(player.ID)),
	}
	if !rec.lobby.HasBanker() {
		rec.lobby.Banker = player.ID
		fresh = append(fresh, rec.record(now, EventPlayerMadeBanker, domain.PlayerInsert(player.ID)))
	}

	sess.lobbyID = rec.lobby.ID
	sess.playerID = player.ID
	rec.publishUpdate(fresh)

	return domain.JoinResponse{Lobby: rec.lobby.ID, Player: player.ID}, nil
}

func (s *Server) poll(sess *session, _ []byte) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, _, err := s.member(sess)
	if err != nil {
		return nil, err
	}
	return domain.PollPayload{Lobby: rec.snapshot(), EventHash: rec.eventHash()}, nil
}

func (s *Server) events(sess *session, _ []byte) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, _, err := s.member(sess)
	if err != nil {
		return nil, err
	}
	return append([]domain.Event{}, rec.events...), nil
}

func (s *Server) leave(sess *session, _ []byte) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, idx, err := s.member(sess)
	if err != nil {
		return nil, err
	}
	if rec.lobby.Banker == rec.lobby.Players[idx].ID {
		return nil, apiError(ErrBankerCannotLeave)
	}

	rec.removePlayer(idx)
	event := rec.record(s.now(), EventPlayerLeave)
	*sess = session{}
	rec.publishUpdate([]domain.Event{event})
	return nil, nil
}

func (s *Server) disband(sess *session, _ []byte) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, _, err := s.banker(sess)
	if err != nil {
		return nil, err
	}

	rec.lobby.Disbanded = true
	event := rec.record(s.now(), EventDisbanded)
	*sess = session{}
	rec.publishUpdate([]domain.Event{event})
	rec.publishKick(nil)
	delete(s.codes, rec.lobby.Code)

	s.logger.Info("lobby disbanded", zap.String("code", rec.lobby.Code))
	return nil, nil
}

func (s *Server) kick(sess *session, body []byte) (any, error) {
	var req domain.PlayerRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, idx, err := s.banker(sess)
	if err != nil {
		return nil, err
	}
	target := rec.playerIndex(req.Player)
	if target < 0 {
		return nil, apiError(ErrKickNotFound)
	}
	if target == idx {
		return nil, apiError(ErrKickYourself)
	}

	kicked := rec.lobby.Players[target].ID
	rec.removePlayer(target)
	event := rec.record(s.now(), EventPlayerKick)
	rec.publishUpdate([]domain.Event{event})
	rec.publishKick(&kicked)
	return nil, nil
}

func (s *Server) promote(sess *session, body []byte) (any, error) {
	var req domain.PlayerRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, idx, err := s.banker(sess)
	if err != nil {
		return nil, err
	}
	target := rec.playerIndex(req.Player)
	if target < 0 {
		return nil, apiError(ErrKickNotFound)
	}
	if target == idx {
		return nil, nil
	}

	previous := rec.lobby.Banker
	rec.lobby.Banker = rec.lobby.Players[target].ID
	event := rec.record(s.now(), EventTransferBanker, domain.PlayerInsert(previous), domain.PlayerInsert(rec.lobby.Banker))
	rec.publishUpdate([]domain.Event{event})
	return nil, nil
}

// account is one side of a transfer: a player index, or the bank / free
// parking when player is negative.
type account struct {
	kind   string
	player int
}

func (s *Server) transfer(sess *session, body []byte) (any, error) {
	var req domain.TransferRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, apiError(ErrTransferAmount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, idx, err := s.member(sess)
	if err != nil {
		return nil, err
	}
	entities := transferEntities()
	isBanker := rec.lobby.Banker == rec.lobby.Players[idx].ID

	var src account
	switch req.Source {
	case entities.Self:
		src = account{kind: entities.Self, player: idx}
	case entities.Bank:
		if !isBanker {
			return nil, apiError(ErrPlayerNotBanker)
		}
		src = account{kind: entities.Bank, player: -1}
	case entities.FreeParking:
		if !rec.lobby.Options.FreeParking {
			return nil, apiError(ErrTransferSource)
		}
		if !isBanker {
			return nil, apiError(ErrPlayerNotBanker)
		}
		src = account{kind: entities.FreeParking, player: -1}
	default:
		return nil, apiError(ErrTransferSource)
	}

	var dst account
	switch req.Destination {
	case entities.Self:
		dst = account{kind: entities.Self, player: idx}
	case entities.Bank:
		dst = account{kind: entities.Bank, player: -1}
	case entities.FreeParking:
		if !rec.lobby.Options.FreeParking {
			return nil, apiError(ErrTransferDest)
		}
		dst = account{kind: entities.FreeParking, player: -1}
	default:
		target := rec.playerIndex(domain.ObjectID(req.Destination))
		if target < 0 {
			return nil, apiError(ErrTransferDest)
		}
		dst = account{kind: entities.Self, player: target}
	}
	if src == dst {
		return nil, apiError(ErrTransferDest)
	}

	if balance, unlimited := rec.balance(src, entities); !unlimited && balance < req.Amount {
		return nil, apiError(ErrTransferFunds)
	}
	rec.adjust(src, -req.Amount, entities)
	rec.adjust(dst, req.Amount, entities)

	actor := rec.lobby.Players[idx].ID
	event := rec.record(s.now(), EventTransfer,
		domain.PlayerInsert(actor),
		domain.CurrencyInsert(req.Amount),
		rec.accountInsert(src, actor, entities),
		rec.accountInsert(dst, actor, entities),
	)
	rec.publishUpdate([]domain.Event{event})
	return nil, nil
}

func (r *lobbyRecord) balance(acc account, entities domain.TransferEntities) (int64, bool) {
	switch {
	case acc.player >= 0:
		return r.lobby.Players[acc.player].Balance, false
	case acc.kind == entities.Bank:
		return r.lobby.Bank, r.lobby.Options.UnlimitedBank
	default:
		return r.lobby.FreeParking, false
	}
}

func (r *lobbyRecord) adjust(acc account, delta int64, entities domain.TransferEntities) {
	switch {
	case acc.player >= 0:
		r.lobby.Players[acc.player].Balance += delta
	case acc.kind == entities.Bank:
		if !r.lobby.Options.UnlimitedBank {
			r.lobby.Bank += delta
		}
	default:
		r.lobby.FreeParking += delta
	}
}

func (r *lobbyRecord) accountInsert(acc account, actor domain.ObjectID, entities domain.TransferEntities) domain.Insert {
	switch {
	case acc.player >= 0 && r.lobby.Players[acc.player].ID == actor:
		return domain.BundleInsert(bundleTransferSelf)
	case acc.player >= 0:
		return domain.PlayerInsert(r.lobby.Players[acc.player].ID)
	case acc.kind == entities.Bank:
		return domain.BundleInsert(bundleTransferBank)
	default:
		return domain.BundleInsert(bundleTransferFP)
	}
}
