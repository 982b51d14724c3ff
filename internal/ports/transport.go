package ports

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bnema/lobbyopoly-cli/internal/domain"
)

// Transport issues one request against the backend and returns the payload
// of its response envelope. Every error is a *domain.RequestError.
type Transport interface {
	Request(ctx context.Context, method, path string, body any) (json.RawMessage, error)
}

// Subscriber opens a push subscription for a lobby. An empty lobby id yields
// a closed channel. The channel is closed once ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, lobbyID domain.ObjectID) <-chan PushMessage
}

// Call runs one request and decodes its payload into T. A payload that does
// not decode is reported as a transport error.
func Call[T any](ctx context.Context, transport Transport, method, path string, body any) (T, error) {
	var out T

	raw, err := transport.Request(ctx, method, path, body)
	if err != nil {
		return out, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, domain.NewTransportError(method, path, fmt.Errorf("decode payload: %w", err))
	}

	return out, nil
}

type PushMessage interface {
	isPushMessage()
}

// Connected marks a freshly opened socket. The backend replays the full
// event history on every new connection.
type Connected struct{}

type LobbyUpdate struct {
	Lobby  domain.Lobby
	Events []domain.Event
}

// Kicked reports a removal. A nil PlayerID means the whole lobby closed.
type Kicked struct {
	PlayerID *domain.ObjectID
}

func (Connected) isPushMessage()   {}
func (LobbyUpdate) isPushMessage() {}
func (Kicked) isPushMessage()      {}
