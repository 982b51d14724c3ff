package fakebackend

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	subscriberBuffer = 32
	writeTimeout     = 3 * time.Second
)

type subscriber struct {
	frames chan []byte
}

type updatePayload struct {
	Lobby  domain.Lobby   `json:"lobby"`
	Events []domain.Event `json:"events"`
}

type socketFrame struct {
	Type    string           `json:"type"`
	Payload *updatePayload   `json:"payload,omitempty"`
	Player  *domain.ObjectID `json:"player,omitempty"`
}

// kickFrame always carries the player key; null means the lobby closed.
type kickFrame struct {
	Type   string           `json:"type"`
	Player *domain.ObjectID `json:"player"`
}

func (r *lobbyRecord) updateFrame(events []domain.Event) ([]byte, error) {
	if events == nil {
		events = []domain.Event{}
	}
	return json.Marshal(socketFrame{Type: "update", Payload: &updatePayload{Lobby: r.lobby, Events: events}})
}

// publishUpdate fans the current snapshot and the new events out to every
// socket of the lobby. Callers hold the server lock.
func (r *lobbyRecord) publishUpdate(events []domain.Event) {
	frame, err := r.updateFrame(events)
	if err != nil {
		r.logger.Error("encode update frame", zap.Error(err))
		return
	}
	r.publish(frame)
}

func (r *lobbyRecord) publishKick(player *domain.ObjectID) {
	frame, err := json.Marshal(kickFrame{Type: "kick", Player: player})
	if err != nil {
		r.logger.Error("encode kick frame", zap.Error(err))
		return
	}
	r.publish(frame)
}

func (r *lobbyRecord) publish(frame []byte) {
	for sub := range r.subs {
		select {
		case sub.frames <- frame:
		default:
			// Slow consumer: drop it, the client reconnects and gets a full replay.
			delete(r.subs, sub)
			close(sub.frames)
		}
	}
}

func (r *lobbyRecord) dropSubscribers() {
	for sub := range r.subs {
		delete(r.subs, sub)
		close(sub.frames)
	}
}

// DropConnections closes every socket of a lobby, as a server restart
// would. Clients reconnect and receive the full history again.
func (s *Server) DropConnections(lobbyID domain.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec := s.lobbies[lobbyID]; rec != nil {
		rec.dropSubscribers()
	}
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	lobbyID := domain.ObjectID(chi.URLParam(r, "lobbyID"))
	logger := s.logger.With(zap.String("lobby", lobbyID.String()))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logger.Warn("accept socket", zap.Error(err))
		return
	}
	defer func() { _ = conn.CloseNow() }()

	s.mu.Lock()
	rec := s.lobbies[lobbyID]
	if rec == nil || rec.lobby.Disbanded {
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "lobby not found")
		return
	}
	initial, err := rec.updateFrame(rec.events)
	if err != nil {
		s.mu.Unlock()
		logger.Error("encode update frame", zap.Error(err))
		_ = conn.Close(websocket.StatusInternalError, "encode update")
		return
	}
	sub := &subscriber{frames: make(chan []byte, subscriberBuffer)}
	sub.frames <- initial
	rec.subs[sub] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if _, ok := rec.subs[sub]; ok {
			delete(rec.subs, sub)
			close(sub.frames)
		}
		s.mu.Unlock()
	}()

	ctx := conn.CloseRead(r.Context())
	logger.Debug("socket opened")

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-sub.frames:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "connection dropped")
				return
			}
			if err := write(ctx, conn, frame); err != nil {
				logger.Debug("socket write failed", zap.Error(err))
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}
